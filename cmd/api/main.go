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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/museum-members/member-registry-api/internal/adapters/httpapi"
	memidempotency "github.com/museum-members/member-registry-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/museum-members/member-registry-api/internal/adapters/memory/memberrepo"
	postgres "github.com/museum-members/member-registry-api/internal/adapters/postgres"
	pgidempotency "github.com/museum-members/member-registry-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/museum-members/member-registry-api/internal/adapters/postgres/memberrepo"
	"github.com/museum-members/member-registry-api/internal/app/members"
	"github.com/museum-members/member-registry-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/museum-members/member-registry-api/internal/platform/clock"
	"github.com/museum-members/member-registry-api/internal/platform/config"
	"github.com/museum-members/member-registry-api/internal/platform/logging"
	"github.com/museum-members/member-registry-api/internal/platform/metrics"
	idempotencyport "github.com/museum-members/member-registry-api/internal/ports/out/idempotency"
	memberrepoport "github.com/museum-members/member-registry-api/internal/ports/out/memberrepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log config: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeDev:
		logger.Warn("dev auth mode enabled; X-Debug-Subject is trusted")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT))
	}

	var (
		memberRepo memberrepoport.Repository
		idemStore  idempotencyport.Store
	)

	switch cfg.Storage {
	case config.StoragePostgres:
		ctx := context.Background()
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		memberRepo = pgmemberrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, cfg.Issuer())
	default:
		memberRepo = memmemberrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	memberSvc := members.NewService(memberRepo, platformclock.NewSystemClock(), logger.Named("members"))
	memberSvc.DefaultPageSize = cfg.SearchDefaultPageSize
	memberSvc.MaxPageSize = cfg.SearchMaxPageSize

	api := httpapi.NewServer(memberSvc, idemStore, metrics.New(), logger.Named("http"))
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         logger.Named("access"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening",
			zap.String("port", cfg.Port),
			zap.String("storage", string(cfg.Storage)),
			zap.String("auth", string(cfg.AuthMode)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	// Runs on a signal or when the listener fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
