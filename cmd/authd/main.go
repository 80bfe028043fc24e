// Command authd serves the token authentication HTTP API.
//
// Configuration comes from the environment and an optional .env file; see
// internal/config for the keys. With USE_MOCK_DATA=true (the default) two
// demo users are seeded in memory:
//
//	demo@example.com  / password123  (user)
//	admin@example.com / admin123     (admin)
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/internal/httpapi"
	"github.com/MrEthical07/tokenauth/internal/logging"
	otelexport "github.com/MrEthical07/tokenauth/metrics/export/otel"
	"github.com/MrEthical07/tokenauth/metrics/export/prometheus"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/users"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	newLogger := logging.New
	if cfg.LogFormat == "console" {
		newLogger = logging.NewConsole
	}
	log, err := newLogger(cfg.LogLevel, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory, closeDirectory, err := openDirectory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDirectory()

	builder := tokenauth.New().
		WithConfig(cfg.Engine()).
		WithLogger(log).
		WithUserLookup(directory)

	if cfg.SessionBackend == config.SessionBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		builder = builder.WithRedis(rdb)
	}
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(tokenauth.NewLoggerSink(log))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if _, err := engine.Health(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	var metrics http.Handler
	if cfg.MetricsEnabled {
		if metrics, err = prometheus.Handler(engine); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	if cfg.OTLPEndpoint != "" {
		shutdown, err := pushMetrics(ctx, cfg, engine)
		if err != nil {
			return err
		}
		defer shutdown()
		log.Info().Str("endpoint", cfg.OTLPEndpoint).Dur("interval", cfg.OTLPExportInterval).Msg("pushing metrics over OTLP")
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(engine, httpapi.Options{
			ServerName:     cfg.ServerName,
			Version:        cfg.Version,
			StartedAt:      time.Now(),
			CookieName:     cfg.RefreshCookieName,
			CookieMaxAge:   engine.SessionLifetime(),
			SecureCookie:   cfg.IsProduction(),
			AllowedOrigins: cfg.AllowedOrigins(),
			Metrics:        metrics,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("env", cfg.Env).
			Str("session_backend", cfg.SessionBackend).
			Bool("mock_data", cfg.UseMockData).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// pushMetrics registers the engine on an OTLP meter provider. The returned
// func flushes the provider within the shutdown timeout, then unregisters.
func pushMetrics(ctx context.Context, cfg *config.Config, engine *tokenauth.Engine) (func(), error) {
	provider, err := otelexport.NewMeterProvider(ctx, otelexport.ProviderOptions{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    "authd",
		ServiceVersion: cfg.Version,
		Interval:       cfg.OTLPExportInterval,
	})
	if err != nil {
		return nil, err
	}
	exporter, err := otelexport.NewExporter(provider.Meter("github.com/MrEthical07/tokenauth"), engine)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
		_ = exporter.Close()
	}, nil
}

// openDirectory returns the seeded demo directory or a Postgres directory
// with the schema migrated.
func openDirectory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tokenauth.UserLookup, func(), error) {
	if cfg.UseMockData {
		log.Warn().Msg("using mock user data; set USE_MOCK_DATA=false in production")
		dir := users.NewMemoryDirectory()
		if err := dir.Seed(password.NewBcrypt(cfg.BcryptCost), users.DemoSeeds()...); err != nil {
			return nil, nil, err
		}
		return dir, func() {}, nil
	}

	if err := users.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}
	pool, err := users.OpenPool(ctx, cfg.DatabaseURL, 0, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}
	dir, err := users.NewPostgresDirectory(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return dir, pool.Close, nil
}
