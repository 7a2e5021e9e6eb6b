package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-autocrud"
	"github.com/goliatone/go-autocrud/bunstore"
	"github.com/goliatone/go-autocrud/config"
	"github.com/goliatone/go-autocrud/logging"
	"github.com/goliatone/go-autocrud/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envDir := flag.String("env-dir", ".", "directory holding the .env files")
	seed := flag.Bool("seed", true, "insert demo rows into an empty database")
	flag.Parse()

	if err := run(*configPath, *envDir, *seed); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, envDir string, seed bool) error {
	if err := config.LoadEnv(envDir); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Backend: cfg.Logging.Backend})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Debug {
		db.AddQueryHook(queryLogger{logger: logger})
	}

	if err := migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if seed {
		if err := seedDemo(ctx, db); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	registry, err := register(db, cfg, logger)
	if err != nil {
		return err
	}

	metrics := transport.NewMetrics(nil)
	middlewares := []transport.MountOption{
		transport.WithMetrics(metrics),
		transport.WithMetricsPath(cfg.Server.MetricsPath),
		transport.WithMiddleware(transport.RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst))),
	}
	global := []transport.MiddlewareFunc{
		transport.WithErrorHandler(transport.ErrorHandlerConfig{Logger: logger}),
		transport.RequestID(),
		transport.AllowedHosts(cfg.AllowedHosts...),
		transport.AllowedOrigins(cfg.AllowedOrigins...),
	}

	var server interface {
		Serve(address string) error
		Shutdown(ctx context.Context) error
	}

	switch cfg.Server.Adapter {
	case "httprouter":
		s := transport.NewHTTPRouterAdapter()
		r := s.Router()
		r.Use(global...)
		transport.Mount(r, registry, middlewares...)
		server = s
	default:
		s := transport.NewFiberAdapter()
		r := s.Router()
		r.Use(global...)
		transport.Mount(r, registry, middlewares...)
		server = s
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s (%s)", cfg.Server.Address, cfg.Server.Adapter)
		errCh <- server.Serve(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func register(db *bun.DB, cfg config.Config, logger autocrud.Logger) (*autocrud.Registry, error) {
	registry := autocrud.NewRegistry(
		autocrud.WithLogger(logger),
		autocrud.WithPaginator(autocrud.NewPaginator(cfg.Pagination.DefaultSize, cfg.Pagination.MaxSize)),
		autocrud.WithExcludedModels(cfg.ExcludedModels...),
	)

	opts := []bunstore.Option{bunstore.WithLogger(logger)}

	steps := []func() error{
		func() error {
			_, err := autocrud.Register[Company](registry, bunstore.Source[Company](db, opts...))
			return err
		},
		func() error {
			_, err := autocrud.Register[Author](registry, bunstore.Source[Author](db, opts...))
			return err
		},
		func() error {
			_, err := autocrud.Register[Tag](registry, bunstore.Source[Tag](db, opts...))
			return err
		},
		func() error {
			_, err := autocrud.Register[Book](registry, bunstore.Source[Book](db, opts...),
				autocrud.WithInlines(Review{}),
				autocrud.WithComputed(
					autocrud.Computed("review_count", func(b *Book) any { return len(b.Reviews) }),
					autocrud.Computed("price_label", func(b *Book) any { return b.Price.String() }),
				),
			)
			return err
		},
		func() error {
			_, err := autocrud.Register[Review](registry, bunstore.Source[Review](db, opts...))
			return err
		},
		func() error {
			_, err := autocrud.Register[AuditEntry](registry, bunstore.Source[AuditEntry](db, opts...))
			if errors.Is(err, autocrud.ErrExcluded) {
				logger.Debug("%v", err)
				return nil
			}
			return err
		},
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// queryLogger logs every statement at debug level.
type queryLogger struct {
	logger autocrud.Logger
}

func (q queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (q queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		q.logger.Warn("%s (%s): %v", event.Query, time.Since(event.StartTime), event.Err)
		return
	}
	q.logger.Debug("%s (%s)", event.Query, time.Since(event.StartTime))
}
