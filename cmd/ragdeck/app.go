package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sweetpotato0/ragdeck/auth"
	authstore "github.com/sweetpotato0/ragdeck/auth/store"
	"github.com/sweetpotato0/ragdeck/client"
	"github.com/sweetpotato0/ragdeck/config"
	"github.com/sweetpotato0/ragdeck/history"
	historystore "github.com/sweetpotato0/ragdeck/history/store"
	"github.com/sweetpotato0/ragdeck/middleware"
	"github.com/sweetpotato0/ragdeck/middleware/enricher"
	"github.com/sweetpotato0/ragdeck/middleware/errorhandler"
	"github.com/sweetpotato0/ragdeck/middleware/limiter"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
	"github.com/sweetpotato0/ragdeck/pkg/telemetry"
	"github.com/sweetpotato0/ragdeck/session"
	sessionstore "github.com/sweetpotato0/ragdeck/session/store"
	"github.com/sweetpotato0/ragdeck/state"
	"github.com/sweetpotato0/ragdeck/tokenizer"
)

// app holds everything a command needs. Stores that dial external
// services are opened on first use.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	in       io.Reader
	jsonOut  bool
	session  *auth.Session
	settings *state.Settings
	client   *client.Client

	history  history.Store
	sessions *session.Manager
	closers  []func(context.Context) error
}

type globalFlags struct {
	configPath string
	backendURL string
	verbose    bool
	jsonOut    bool
}

func newApp(ctx context.Context, flags globalFlags, out io.Writer, in io.Reader) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.backendURL != "" {
		cfg.Backend.URL = flags.backendURL
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}

	logging.SetLogger(logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level))
	a := &app{
		cfg:     cfg,
		logger:  logging.WithComponent("cli"),
		out:     out,
		in:      in,
		jsonOut: flags.jsonOut,
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Disable:        !cfg.Telemetry.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	authStore, err := a.openAuthStore()
	if err != nil {
		return nil, err
	}
	a.session = auth.NewSession(auth.WithStore(authStore))
	if err := a.session.Restore(ctx); err != nil {
		a.logger.Warn("could not restore session", "error", err)
	}

	a.settings, err = state.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	a.client, err = client.New(cfg.Backend.URL,
		client.WithTimeout(cfg.Backend.Timeout),
		client.WithEvidenceTimeout(cfg.Backend.EvidenceTimeout),
		client.WithTokenSource(a.session),
		client.WithUserAgent("ragdeck/"+version),
		client.WithLogger(logging.WithComponent("client")),
		client.WithMiddleware(a.middlewares()...),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openAuthStore() (auth.Store, error) {
	switch a.cfg.Auth.Store {
	case config.BackendMemory:
		return authstore.NewMemory(), nil
	case config.BackendFile:
		return authstore.NewFile(a.cfg.Auth.Path), nil
	case config.BackendRedis:
		r := a.cfg.Auth.Redis
		s := authstore.NewRedisStore(&authstore.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Key:      r.Prefix,
			TTL:      r.TTL,
		})
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		return s, nil
	}
	return nil, fmt.Errorf("unknown auth store %q", a.cfg.Auth.Store)
}

// middlewares builds the request chain: rejected credentials drop the
// stored session, the settings API key is attached, and the optional
// limiter paces requests.
func (a *app) middlewares() []middleware.Middleware {
	mws := []middleware.Middleware{
		errorhandler.NewErrorHandler(nil).OnUnauthorized(func(*middleware.Context) {
			if err := a.session.Logout(context.Background()); err != nil {
				a.logger.Warn("failed to clear session", "error", err)
			}
		}),
		enricher.APIKey(a.settings.APIKey),
	}
	if rl := a.cfg.Backend.RateLimit; rl > 0 {
		mws = append(mws, limiter.NewRateLimiter(rl, a.cfg.Backend.RateBurst))
	}
	return mws
}

// historyStore opens the configured query history, or returns nil when
// history is disabled.
func (a *app) historyStore(ctx context.Context) (history.Store, error) {
	if a.history != nil {
		return a.history, nil
	}
	h := a.cfg.History
	switch h.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		a.history = historystore.NewInMemoryStore(h.Limit)
	case config.BackendPostgres:
		p := h.Postgres
		s, err := historystore.NewPostgresStore(ctx, &historystore.PostgresConfig{
			Host:     p.Host,
			Port:     p.Port,
			User:     p.User,
			Password: p.Password,
			DBName:   p.DBName,
			SSLMode:  p.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		a.history = s
	case config.BackendMongo:
		m := h.Mongo
		s, err := historystore.NewMongoStore(ctx, &historystore.MongoConfig{
			URI:        m.URI,
			Database:   m.Database,
			Collection: m.Collection,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		a.history = s
	case config.BackendRedis:
		r := h.Redis
		s := historystore.NewRedisStore(&historystore.RedisConfig{
			Addr:       r.Addr,
			Password:   r.Password,
			DB:         r.DB,
			Prefix:     r.Prefix,
			TTL:        r.TTL,
			MaxRecords: h.Limit,
		})
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		a.history = s
	default:
		return nil, fmt.Errorf("unknown history backend %q", h.Backend)
	}
	return a.history, nil
}

// sessionManager builds the conversation manager on first use.
func (a *app) sessionManager(ctx context.Context) (*session.Manager, error) {
	if a.sessions != nil {
		return a.sessions, nil
	}
	opts, err := a.conversationOptions(ctx)
	if err != nil {
		return nil, err
	}

	var store session.Store
	switch sc := a.cfg.Session; sc.Store {
	case config.BackendRedis:
		r := sc.Redis
		s := sessionstore.NewRedisStore(&sessionstore.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      r.TTL,
		})
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		store = s
	default:
		store = sessionstore.NewInMemoryStore()
	}

	opts = append(opts, session.WithStore(store))
	a.sessions = session.NewManager(a.client.Query(), opts...)
	return a.sessions, nil
}

// conversationOptions carries the configured tokenizer, window limits,
// query settings and history store.
func (a *app) conversationOptions(ctx context.Context) ([]session.Option, error) {
	sc := a.cfg.Session
	tok, err := tokenizer.New(sc.Tokenizer)
	if err != nil {
		return nil, err
	}
	hist, err := a.historyStore(ctx)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithTokenizer(tok),
		session.WithHistoryTurns(sc.HistoryTurns),
		session.WithTokenBudget(sc.TokenBudget),
		session.WithMode(a.settings.QueryMode()),
		session.WithTopK(a.settings.TopK()),
		session.WithLogger(logging.WithComponent("session")),
	}
	if hist != nil {
		opts = append(opts, session.WithHistory(hist))
	}
	return opts, nil
}

// close releases stores and flushes telemetry, newest first.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// followSession reloads the sign-in state when another process changes it,
// until the returned stop func is called.
func (a *app) followSession(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.session.Watch(ctx); err != nil {
			a.logger.Debug("session watch ended", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
