package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arenahub/internal/core/services"
	httphandlers "arenahub/internal/handlers/http"
	"arenahub/internal/infrastructure/middleware"
	"arenahub/internal/infrastructure/monitoring"
	"arenahub/internal/infrastructure/presence"
	"arenahub/internal/infrastructure/repositories"
	"arenahub/pkg/config"
	"arenahub/pkg/logger"
	"arenahub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

// buildAuthenticator wires the auth service over the factory's stores.
// The returned gate is not started.
func buildAuthenticator(
	cfg *config.Config,
	factory *repositories.RepositoryFactory,
	metrics *monitoring.PrometheusCollector,
	log *zap.SugaredLogger,
) (*services.Authenticator, *services.InitTokenGate, error) {
	codec, err := services.NewTokenCodec(services.TokenCodecConfig{
		UserSecret:     cfg.Auth.JWTSecret,
		AdminSecret:    cfg.Auth.AdminJWTSecret,
		UserAccessTTL:  cfg.Auth.AccessTokenTTL,
		AdminAccessTTL: cfg.Auth.AdminAccessTTL,
		RefreshTTL:     cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return nil, nil, err
	}

	gate := services.NewInitTokenGate(factory.CreateInitTokenRepository(), services.InitTokenGateConfig{
		TTL:              cfg.InitToken.TTL,
		SweepInterval:    cfg.InitToken.SweepInterval,
		StoreTimeout:     cfg.Database.QueryTimeout,
		BreakerThreshold: cfg.InitToken.BreakerThreshold,
		BreakerCooldown:  cfg.InitToken.BreakerCooldown,
	}, metrics, log)

	auth := services.NewAuthenticator(
		factory.CreateUserRepository(),
		factory.CreateAdminRepository(),
		gate,
		services.NewPasswordHasher(cfg.Auth.BcryptCost),
		codec,
		services.AuthenticatorConfig{
			ReferralReward: cfg.Auth.ReferralReward,
			StoreTimeout:   cfg.Database.QueryTimeout,
		},
		metrics,
		log,
	)
	return auth, gate, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	startTime := time.Now()

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "arenahub",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
		Version:     version,
	})
	if err != nil {
		return err
	}

	factory, err := repositories.NewRepositoryFactory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer factory.Close()

	metrics := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	auth, gate, err := buildAuthenticator(cfg, factory, metrics, log)
	if err != nil {
		return err
	}
	gate.Start()
	defer gate.Stop()

	registry := presence.NewRegistry(metrics, log)
	gateway := presence.NewGateway(registry, auth, presence.GatewayConfig{
		Connection: presence.ConnectionConfig{
			PingInterval:   cfg.Presence.PingInterval,
			PongTimeout:    cfg.Presence.PongTimeout,
			WriteTimeout:   cfg.Presence.WriteTimeout,
			SendBuffer:     cfg.Presence.SendBuffer,
			MaxMessageSize: cfg.Presence.MaxMessageSize,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthTimeout:    cfg.Database.QueryTimeout,
	}, metrics, log)

	var relay *presence.Relay
	if cfg.Presence.RelayEnabled {
		if client := factory.RedisClient(); client != nil {
			relay = presence.NewRelay(client, cfg.Presence.RelayChannel, registry, log)
			if err := relay.Start(ctx); err != nil {
				log.Warnw("presence relay unavailable, broadcasts stay local", "error", err)
				relay = nil
			}
		} else {
			log.Warn("presence relay enabled but redis is unreachable, broadcasts stay local")
		}
	}

	health := monitoring.NewHealthChecker()
	factory.RegisterHealthChecks(health)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestLoggingMiddleware(logger.NewContextLogger(zapLogger), metrics),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(log),
	)

	authCfg := middleware.AuthConfig{StoreTimeout: cfg.Database.QueryTimeout}
	limiter := middleware.NewHTTPRateLimitMiddleware(cfg)

	httphandlers.NewAuthHandler(auth, gate, authCfg, int(cfg.Auth.AccessTokenTTL.Seconds())).SetupRoutes(router, limiter)
	httphandlers.NewAdminAuthHandler(auth, authCfg, int(cfg.Auth.AdminAccessTTL.Seconds())).SetupRoutes(router, limiter)
	httphandlers.NewRealtimeHandler(registry, auth, authCfg).SetupRoutes(router)
	gateway.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(startTime).String(),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":       status.Status,
			"timestamp":    status.Timestamp,
			"dependencies": status.Checks,
			"init_tokens":  gin.H{"breaker": gate.BreakerState(), "fallback": gate.Stats()},
			"presence":     registry.Stats(),
		})
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting ArenaHub server", "address", cfg.Server.Address, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		return err
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	// Hijacked WebSocket connections outlive srv.Shutdown.
	registry.Close()
	gateway.Wait()

	if relay != nil {
		if err := relay.Stop(); err != nil {
			log.Warnw("error stopping presence relay", "error", err)
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warnw("error flushing traces", "error", err)
	}

	log.Info("ArenaHub server stopped")
	return nil
}
