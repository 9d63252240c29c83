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

	"consulta_backend/internal/calendar"
	"consulta_backend/internal/consultations"
	"consulta_backend/internal/doctors"
	"consulta_backend/internal/events"
	apphttp "consulta_backend/internal/http"
	"consulta_backend/internal/http/router"
	"consulta_backend/internal/notify"
	"consulta_backend/internal/scheduler"
	"consulta_backend/migrations"
	"consulta_backend/platform/config"
	"consulta_backend/platform/db"
	"consulta_backend/platform/logger"
	"consulta_backend/platform/retry"
	"consulta_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	dispatcher := notify.NewDispatcher(notify.NewClient(cfg), cfg, log)
	if closeQueue := initWebhookQueue(cfg, dispatcher, log); closeQueue != nil {
		defer closeQueue()
	}

	cache, closeCache := initDoctorCache(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}
	policy := retry.DefaultPolicy()
	if n := cfg.GetLookupMaxAttempts(); n > 0 {
		policy.MaxAttempts = n
	}
	if unit := cfg.GetLookupBackoffUnit(); unit > 0 {
		policy.Backoff = retry.Linear(unit)
	}
	doctorResolver := doctors.NewResolver(doctors.NewRepository(pool), cache, policy, log)

	// ========================================================================
	// Domain Modules
	// ========================================================================

	consultationsModule := consultations.NewModule(pool, val, doctorResolver, dispatcher, eventBus, log)
	if cal := calendar.NewClient(cfg); cal != nil {
		consultationsModule.SetCalendar(cal)
		log.Info("calendar sync enabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			consultationsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		// open event streams never finish on their own
		consultationsModule.Hub().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}
	dispatcher.Wait()
	log.Info("server stopped")
}

// initWebhookQueue routes webhook deliveries through asynq when Redis is
// configured. Without it the dispatcher posts in-process.
func initWebhookQueue(cfg *config.Config, dispatcher *notify.Dispatcher, log *logger.Logger) func() {
	if !cfg.IsQueueEnabled() {
		log.Warn("REDIS_URL not configured; webhooks are delivered in-process")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize webhook queue client", "error", err)
		return nil
	}
	dispatcher.SetQueue(client)

	return func() {
		_ = client.Close()
	}
}

func initDoctorCache(cfg *config.Config, log *logger.Logger) (doctors.Cache, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	opts, err := scheduler.RedisOptions(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("invalid REDIS_URL; doctor cache disabled", "error", err)
		return nil, nil
	}
	client := redis.NewClient(opts)

	return doctors.NewRedisCache(client, cfg.GetDoctorCacheTTL()), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * baseDelay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
