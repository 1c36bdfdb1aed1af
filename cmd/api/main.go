package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/identity-admin/config"
	"github.com/jwalitptl/identity-admin/internal/email"
	adminHandler "github.com/jwalitptl/identity-admin/internal/handler/admin"
	"github.com/jwalitptl/identity-admin/internal/handler/health"
	meHandler "github.com/jwalitptl/identity-admin/internal/handler/me"
	promHandler "github.com/jwalitptl/identity-admin/internal/handler/prometheus"
	"github.com/jwalitptl/identity-admin/internal/identity"
	"github.com/jwalitptl/identity-admin/internal/middleware"
	"github.com/jwalitptl/identity-admin/internal/repository"
	"github.com/jwalitptl/identity-admin/internal/repository/memory"
	"github.com/jwalitptl/identity-admin/internal/repository/postgres"
	"github.com/jwalitptl/identity-admin/internal/router"
	adminService "github.com/jwalitptl/identity-admin/internal/service/admin"
	auditService "github.com/jwalitptl/identity-admin/internal/service/audit"
	eventService "github.com/jwalitptl/identity-admin/internal/service/event"
	meService "github.com/jwalitptl/identity-admin/internal/service/me"
	"github.com/jwalitptl/identity-admin/pkg/auth"
	"github.com/jwalitptl/identity-admin/pkg/logger"
	"github.com/jwalitptl/identity-admin/pkg/messaging"
	"github.com/jwalitptl/identity-admin/pkg/messaging/redis"
	"github.com/jwalitptl/identity-admin/pkg/metrics"
	"github.com/jwalitptl/identity-admin/pkg/password"
	"github.com/jwalitptl/identity-admin/pkg/security"
)

const metricsNamespace = "identity_admin"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	// Initialize message broker
	var (
		broker      messaging.Broker = messaging.NoopBroker{}
		redisPinger health.Pinger
	)
	if cfg.Redis.Enabled {
		rb, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		broker, redisPinger = rb, rb
	}
	defer broker.Close()

	auditor, err := auditService.NewService(auditService.Config{
		Enabled:     cfg.Audit.Enabled,
		OutputPaths: cfg.Audit.OutputPaths,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audit log")
	}
	defer auditor.Sync()

	mailer := email.NewService(email.Config{
		Enabled:  cfg.Mail.Enabled,
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})

	m := metrics.New(metricsNamespace, prometheus.DefaultRegisterer)

	// Initialize identity store
	roles := identity.NewRoleManager(store.Roles(), cfg.Cache.RoleTTL, cfg.Cache.CleanupInterval)
	if err := roles.EnsureRoles(ctx, cfg.Storage.SeedRoles...); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles")
	}
	users := identity.NewManager(
		store.Users(),
		roles,
		security.NewBcryptHasher(cfg.Identity.BcryptCost),
		identity.Options{
			Password:                  cfg.Identity.Password,
			RequireUniqueEmail:        cfg.Identity.RequireUniqueEmail,
			AllowedUserNameCharacters: cfg.Identity.AllowedUserNameCharacters,
		},
	)

	// Initialize services
	events := eventService.NewService(broker, cfg.Redis.Channel, m)
	generator := password.NewGenerator(&cfg.Identity.Password, nil)
	adminSvc := adminService.NewService(users, roles, generator, events, auditor, mailer, m)
	meSvc := meService.NewService(users, auditor, events, m)

	// Initialize handlers
	var metricsH *promHandler.Handler
	metricsPath := ""
	if cfg.Monitoring.PrometheusEnabled {
		metricsH = promHandler.New(m, prometheus.DefaultGatherer)
		metricsPath = cfg.Monitoring.MetricsPath
	}
	checks := map[string]health.Pinger{"storage": store}
	if redisPinger != nil {
		checks["redis"] = redisPinger
	}

	// Setup router
	r := router.NewRouter(
		router.RouterConfig{
			Mode:             cfg.Server.Mode,
			AdminRole:        cfg.Identity.AdminRole,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       corsConfig(cfg.CORS),
			SecurityConfig:   middleware.DefaultSecurityConfig(),
			MetricsPath:      metricsPath,
		},
		middleware.NewAuthMiddleware(auth.NewValidator(cfg.JWT)),
		adminHandler.NewHandler(adminSvc),
		meHandler.NewHandler(meSvc),
		health.NewHandler(checks),
		metricsH,
	)

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited properly")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return postgres.NewStore(db), nil
}

func corsConfig(c config.CORSConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(c.AllowedOrigins) > 0 {
		cors.AllowOrigins = c.AllowedOrigins
	}
	if len(c.AllowedMethods) > 0 {
		cors.AllowMethods = c.AllowedMethods
	}
	if len(c.AllowedHeaders) > 0 {
		cors.AllowHeaders = c.AllowedHeaders
	}
	return cors
}
