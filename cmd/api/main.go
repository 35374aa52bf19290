package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/parkfinder-backend/api/responses"
	"github.com/angelmondragon/parkfinder-backend/api/routes"
	"github.com/angelmondragon/parkfinder-backend/internal/address"
	"github.com/angelmondragon/parkfinder-backend/internal/auth"
	"github.com/angelmondragon/parkfinder-backend/internal/parkings"
	"github.com/angelmondragon/parkfinder-backend/internal/realtime"
	"github.com/angelmondragon/parkfinder-backend/internal/requests"
	"github.com/angelmondragon/parkfinder-backend/internal/users"
	"github.com/angelmondragon/parkfinder-backend/internal/visits"
	"github.com/angelmondragon/parkfinder-backend/internal/wallet"
	pkgAuth "github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/auth/session"
	"github.com/angelmondragon/parkfinder-backend/pkg/config"
	"github.com/angelmondragon/parkfinder-backend/pkg/db"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/maps"
	"github.com/angelmondragon/parkfinder-backend/pkg/metrics"
	"github.com/angelmondragon/parkfinder-backend/pkg/migrate"
	"github.com/angelmondragon/parkfinder-backend/pkg/redis"
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
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	responses.ExposeInternalErrors(cfg.App.IsDev())

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}
	if err := dbClient.RequirePostGIS(ctx); err != nil {
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	hub := realtime.NewHub(logg, m)
	broker, err := realtime.NewBroker(redisClient, cfg.Realtime.Channel, hub, logg)
	if err != nil {
		return err
	}

	var (
		places   address.Places
		resolver parkings.PlaceResolver
	)
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			return err
		}
		places, resolver = mapsClient, mapsClient
	} else {
		logg.Warn(ctx, "google maps api key not set, place search disabled")
	}

	ledger, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, m)
	if err != nil {
		return err
	}
	userRepo := users.NewRepository(dbClient.DB())
	usersService, err := users.NewService(userRepo, ledger)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	parkingsService, err := parkings.NewService(parkings.NewRepository(dbClient.DB()), dbClient, parkings.Options{
		StrictOccupancy: cfg.Occupancy.Strict,
		Publisher:       broker,
		Places:          resolver,
		Metrics:         m,
		Logger:          logg,
	})
	if err != nil {
		return err
	}
	visitsService, err := visits.NewService(visits.NewRepository(dbClient.DB()), dbClient, ledger, visits.Options{
		Policy:   cfg.CheckIn,
		Cooldown: redisClient,
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	requestsService, err := requests.NewService(requests.NewRepository(dbClient.DB()), dbClient, ledger, parkingsService, logg)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Verifier: pkgAuth.NewVerifier(cfg.JWT, sessionManager),
		Metrics:  m,
		Gatherer: registry,
		Hub:      hub,
		Places:   address.NewService(places),
		Auth:     authService,
		Users:    usersService,
		Parkings: parkingsService,
		Visits:   visitsService,
		Requests: requestsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	instance := cfg.App.InstanceID
	if instance == "" {
		instance = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance,
	})

	// Websocket connections outlive any write timeout, so only the header read is bounded.
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return broker.Run(gctx) })
	g.Go(func() error {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
