package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	"github.com/angelmondragon/marketplace-backend/api/routes"
	"github.com/angelmondragon/marketplace-backend/internal/auth"
	"github.com/angelmondragon/marketplace-backend/internal/avatars"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/engagement"
	"github.com/angelmondragon/marketplace-backend/internal/messages"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/internal/profiles"
	"github.com/angelmondragon/marketplace-backend/internal/provisioning"
	"github.com/angelmondragon/marketplace-backend/internal/sellers"
	"github.com/angelmondragon/marketplace-backend/internal/wishlist"
	"github.com/angelmondragon/marketplace-backend/pkg/auth/session"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/migrate"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
	"github.com/angelmondragon/marketplace-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if serr := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
			Environment:      cfg.App.Env,
		}); serr != nil {
			logg.Error(ctx, "sentry init failed", serr)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(reg)
	policies := policy.NewMarketplace(
		policy.WithObserver(metrics.NewPolicyMetrics(reg)),
		policy.WithLogger(logg),
	)

	ready := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	svcs, err := buildServices(ctx, cfg, logg, dbClient, sessionManager, policies, ready)
	if err != nil {
		return err
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:         cfg,
			Logger:         logg,
			HTTPMetrics:    httpMetrics,
			MetricsHandler: metricsHandler,
			Redis:          redisClient,
			Sessions:       sessionManager,
			Roles:          profiles.NewRepository(dbClient.DB()),
			Ready:          ready,
			Services:       svcs,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessionManager *session.Manager,
	policies *policy.Set,
	ready map[string]controllers.Pinger,
) (routes.Services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	profileRepo := profiles.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	var (
		svcs routes.Services
		err  error
	)

	trigger, err := provisioning.NewService(provisioning.ServiceParams{Outbox: emitter, Logger: logg})
	if err != nil {
		return svcs, err
	}
	if svcs.Auth, err = auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		Repo:           auth.NewRepository(conn),
		Provisioning:   trigger,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return svcs, err
	}
	if svcs.Profiles, err = profiles.NewService(profiles.ServiceParams{
		DB:       dbClient,
		Repo:     profileRepo,
		Policies: policies,
		Outbox:   emitter,
		Logger:   logg,
	}); err != nil {
		return svcs, err
	}
	if svcs.Sellers, err = sellers.NewService(sellers.NewRepository(conn), policies); err != nil {
		return svcs, err
	}
	if svcs.Products, err = products.NewService(productRepo, policies); err != nil {
		return svcs, err
	}
	if svcs.Cart, err = cart.NewService(cartRepo, productRepo, policies); err != nil {
		return svcs, err
	}
	if svcs.Orders, err = orders.NewService(orders.ServiceParams{
		DB:       dbClient,
		Repo:     orderRepo,
		Products: productRepo,
		Policies: policies,
		Outbox:   emitter,
		Logger:   logg,
	}); err != nil {
		return svcs, err
	}
	if svcs.Checkout, err = checkout.NewService(dbClient, cartRepo, orderRepo, policies, emitter, logg); err != nil {
		return svcs, err
	}
	if svcs.Wishlist, err = wishlist.NewService(wishlist.ServiceParams{
		DB:           dbClient,
		WishlistRepo: wishlist.NewRepository(conn),
		Policies:     policies,
	}); err != nil {
		return svcs, err
	}
	if svcs.Messages, err = messages.NewService(messages.ServiceParams{
		DB:       dbClient,
		Repo:     messages.NewRepository(conn),
		Policies: policies,
		Outbox:   emitter,
		Logger:   logg,
	}); err != nil {
		return svcs, err
	}
	if svcs.Engagement, err = engagement.NewService(engagement.NewRepository(conn), policies); err != nil {
		return svcs, err
	}

	store, err := storage.NewClient(ctx, cfg.Storage, logg)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logg.Warn(ctx, "object storage not configured; avatar routes disabled")
	case err != nil:
		return svcs, err
	default:
		ready["storage"] = store
		if svcs.Avatars, err = avatars.NewService(avatars.ServiceParams{
			Store:          store,
			Profiles:       profileRepo,
			Policies:       policies,
			MaxUploadBytes: int64(cfg.Storage.MaxUploadMB) * 1024 * 1024,
			Logger:         logg,
		}); err != nil {
			return svcs, err
		}
	}

	return svcs, nil
}
