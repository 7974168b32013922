package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/sweetpotato0/ragdeck/api"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/history"
)

// PostgresStore implements history.Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "ragdeck",
		SSLMode:  "disable",
	}
}

// DSN renders the lib/pq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewPostgresStore connects and creates the query_history table if needed
func NewPostgresStore(ctx context.Context, config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS query_history (
		id VARCHAR(64) PRIMARY KEY,
		session_id VARCHAR(64),
		query TEXT NOT NULL,
		mode VARCHAR(16) NOT NULL,
		response TEXT NOT NULL,
		errors TEXT[],
		dropped INTEGER NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_history_created_at ON query_history(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_query_history_session ON query_history(session_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Add inserts a record, replacing one with the same ID
func (s *PostgresStore) Add(ctx context.Context, r *history.Record) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	r.Prepare()

	query := `
	INSERT INTO query_history (id, session_id, query, mode, response, errors, dropped, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		response = EXCLUDED.response,
		errors = EXCLUDED.errors,
		dropped = EXCLUDED.dropped,
		duration_ms = EXCLUDED.duration_ms
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.SessionID, r.Query, string(r.Mode), r.Response,
		pq.Array(r.Errors), r.Dropped, r.Duration.Milliseconds(), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, session_id, query, mode, response, errors, dropped, duration_ms, created_at FROM query_history`

// Get returns one record
func (s *PostgresStore) Get(ctx context.Context, id string) (*history.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, errorskg.ErrNotFound)
	}
	return r, err
}

// Search matches query against the question and answer text with ILIKE
func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]*history.Record, error) {
	sqlQuery := selectColumns
	var args []any
	if query != "" {
		sqlQuery += ` WHERE query ILIKE $1 OR response ILIKE $1`
		args = append(args, "%"+escapeLike(query)+"%")
	}
	sqlQuery += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		sqlQuery += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make([]*history.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recent returns the newest records
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*history.Record, error) {
	return s.Search(ctx, "", limit)
}

// Clear removes all records
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM query_history`)
	return err
}

// Count returns the number of records
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_history`).Scan(&n)
	return n, err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*history.Record, error) {
	var (
		r         history.Record
		sessionID sql.NullString
		mode      string
		durMS     int64
	)
	err := row.Scan(&r.ID, &sessionID, &r.Query, &mode, &r.Response,
		pq.Array(&r.Errors), &r.Dropped, &durMS, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.SessionID = sessionID.String
	r.Mode = api.QueryMode(mode)
	r.Duration = time.Duration(durMS) * time.Millisecond
	return &r, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
