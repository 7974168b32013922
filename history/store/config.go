package store

import (
	"time"

	"github.com/sweetpotato0/ragdeck/pkg/env"
)

// PostgresConfigFromEnv loads PostgreSQL configuration from environment variables
func PostgresConfigFromEnv() *PostgresConfig {
	return &PostgresConfig{
		Host:     env.String("POSTGRES_HOST", "localhost"),
		Port:     env.Int("POSTGRES_PORT", 5432),
		User:     env.String("POSTGRES_USER", "postgres"),
		Password: env.String("POSTGRES_PASSWORD", ""),
		DBName:   env.String("POSTGRES_DB", "ragdeck"),
		SSLMode:  env.String("POSTGRES_SSLMODE", "disable"),
	}
}

// RedisConfigFromEnv loads Redis configuration from environment variables
func RedisConfigFromEnv() *RedisConfig {
	return &RedisConfig{
		Addr:       env.String("REDIS_ADDR", "localhost:6379"),
		Password:   env.String("REDIS_PASSWORD", ""),
		DB:         env.Int("REDIS_DB", 0),
		Prefix:     env.String("REDIS_HISTORY_PREFIX", "ragdeck:history:"),
		TTL:        env.Duration("REDIS_HISTORY_TTL", 30*24*time.Hour),
		MaxRecords: env.Int("REDIS_HISTORY_MAX", 1000),
	}
}

// MongoConfigFromEnv loads MongoDB configuration from environment variables
func MongoConfigFromEnv() *MongoConfig {
	return &MongoConfig{
		URI:        env.String("MONGODB_URI", "mongodb://localhost:27017"),
		Database:   env.String("MONGODB_DB", "ragdeck"),
		Collection: env.String("MONGODB_COLLECTION", "query_history"),
	}
}
