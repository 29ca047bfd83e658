package app

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/solemart/storefront/internal/domain/cart"
	"github.com/solemart/storefront/internal/domain/checkout"
	"github.com/solemart/storefront/internal/domain/coupon"
	"github.com/solemart/storefront/internal/domain/fulfillment"
	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/returns"
	"github.com/solemart/storefront/internal/handler"
	"github.com/solemart/storefront/internal/jobs"
	"github.com/solemart/storefront/internal/notify"
	"github.com/solemart/storefront/internal/storage/cache"
	"github.com/solemart/storefront/internal/storage/postgres"
	redisstore "github.com/solemart/storefront/internal/storage/redis"
	"github.com/solemart/storefront/pkg/health"
	"github.com/solemart/storefront/pkg/httpmiddleware"
)

// connectBackoff retries a connect function with exponential backoff until
// it succeeds or the overall deadline passes. Databases routinely come up a
// few seconds after the service in container environments.
func connectBackoff(ctx context.Context, lg *zap.Logger, name string, connect func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		if err := connect(); err != nil {
			lg.Warn("connect failed, retrying", zap.String("target", name), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}

// Run creates all dependencies, starts the HTTP server and the job
// scheduler, and handles graceful shutdown. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	var pool *pgxpool.Pool
	err := connectBackoff(ctx, lg, "postgres", func() error {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis for cart storage.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()
	if err := connectBackoff(ctx, lg, "redis", func() error {
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		return errors.Wrap(err, "connect redis")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories. The catalog sits behind a read-through cache.
	productRepo := cache.NewProductRepository(postgres.NewProductRepository(pool), cfg.Catalog.CacheTTL)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	numberSeq := postgres.NewOrderNumberSequence(pool)
	cartRepo := redisstore.NewCartRepository(redisClient, cfg.Cart.TTL)

	// Domain services.
	engine := lifecycle.NewEngine(cfg.Policy.Lifecycle())
	notifier := notify.LogNotifier{}
	couponValidator := coupon.NewRepoValidator(couponRepo)
	cartSvc := cart.NewService(cartRepo)
	checkoutSvc := checkout.NewService(productRepo, couponValidator, orderRepo, numberSeq, engine, notifier)
	fulfillmentSvc := fulfillment.NewService(orderRepo, notifier)
	returnsSvc := returns.NewService(requestRepo, orderRepo, engine, notifier)

	// Background jobs.
	scheduler := jobs.NewScheduler(lg.Named("jobs"))
	expireJob := jobs.NewExpireUnpaidOrders(orderRepo, fulfillmentSvc, cfg.Jobs.UnpaidOrderTTL, lg.Named("expire"))
	if err := scheduler.Register(cfg.Jobs.ExpireSchedule, expireJob); err != nil {
		return errors.Wrap(err, "register expire job")
	}
	scheduler.Start()

	// HTTP handlers.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		cartSvc,
		checkoutSvc,
		fulfillmentSvc,
		returnsSvc,
	)
	sec := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes(sec)))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}

		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			lg.Warn("Jobs did not finish before shutdown deadline")
		}

		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
