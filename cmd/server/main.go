package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"payprefs/internal/audit"
	"payprefs/internal/gate"
	"payprefs/internal/platform/config"
	"payprefs/internal/platform/database"
	"payprefs/internal/platform/health"
	"payprefs/internal/platform/logger"
	"payprefs/internal/platform/middleware"
	prefhandler "payprefs/internal/preference/handler"
	prefmetrics "payprefs/internal/preference/metrics"
	"payprefs/internal/preference/service"
	prefstore "payprefs/internal/preference/store"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	log.Info("initializing payprefs",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", cfg.DatabaseURL != "",
	)

	pool, err := database.New(database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck // process is exiting

	var (
		stores service.Stores
		txRun  service.Tx
	)
	if pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pool.Migrate(ctx); err != nil {
			cancel()
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		cancel()

		stores = service.Stores{
			Prefs: prefstore.NewPostgres(pool.DB()),
			Audit: audit.NewPostgres(pool.DB()),
		}
		txRun = newPreferencePostgresTx(pool.DB(), cfg.TxTimeout)
	} else {
		log.Warn("no database configured, using in-memory stores")
		stores = service.Stores{
			Prefs: prefstore.New(),
			Audit: audit.NewInMemoryStore(),
		}
		txRun = service.NewMemoryTx(stores, cfg.TxTimeout)
	}

	prefs := service.NewService(txRun, stores, log,
		service.WithMetrics(prefmetrics.New()),
	)
	notificationGate := gate.New(stores.Prefs, log)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	router := newRouter(cfg, log,
		prefhandler.New(prefs, log),
		gate.NewHandler(notificationGate, log),
		healthHandler,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// newRouter mounts all endpoints with the shared middleware stack. The /me
// routes require a bearer token; the gate and operational endpoints do not.
func newRouter(
	cfg config.Server,
	log *slog.Logger,
	prefs *prefhandler.Handler,
	gateHandler *gate.Handler,
	healthHandler *health.Handler,
) http.Handler {
	r := chi.NewRouter()

	metadata := middleware.NewMetadata(middleware.MetadataConfig{
		TrustedProxies: cfg.TrustedProxies,
	})

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	// Metadata precedes Logger so request logs carry the resolved client IP.
	r.Use(metadata.Handler)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	gateHandler.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth([]byte(cfg.JWTSigningKey), log))
		prefs.Register(r)
	})

	return r
}
