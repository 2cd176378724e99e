package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/auth"
	"github.com/quickmate/server/internal/v1/config"
	"github.com/quickmate/server/internal/v1/engine"
	"github.com/quickmate/server/internal/v1/events"
	"github.com/quickmate/server/internal/v1/health"
	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/middleware"
	"github.com/quickmate/server/internal/v1/ratelimit"
	"github.com/quickmate/server/internal/v1/session"
	"github.com/quickmate/server/internal/v1/store"
	"github.com/quickmate/server/internal/v1/tracing"
	"github.com/quickmate/server/internal/v1/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	if err := logging.Initialize(!cfg.Production()); err != nil {
		panic(err)
	}
	ctx := context.Background()
	logging.Info(ctx, "starting chess server",
		zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, "chess-server", cfg.OTLPEndpoint)
		if err != nil {
			logging.Fatal(ctx, "tracing init failed", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logging.Fatal(ctx, "invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Warn(ctx, "redis unreachable at startup, continuing degraded", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var pgPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Fatal(ctx, "postgres pool init failed", zap.Error(err))
		}
		defer pgPool.Close()
	}

	var cache store.Cache
	if redisClient != nil {
		cache = store.NewRedisCache(redisClient)
	}
	st := store.New(cache)
	bus := events.NewBus()
	sessions := session.NewRegistry(session.DefaultGrace)

	engineOpts := []engine.Option{engine.WithSpectatorCap(cfg.SpectatorCap)}
	if redisClient != nil {
		bridge := events.NewBridge(redisClient, bus)
		defer bridge.Close()
		engineOpts = append(engineOpts, engine.WithBridge(bridge))
	}
	eng := engine.New(st, sessions, bus, engineOpts...)

	var validator *auth.Validator
	if cfg.JWTSecret != "" {
		validator = auth.NewValidator(cfg.JWTSecret)
	}
	var directory auth.UserDirectory
	if pgPool != nil {
		directory = auth.NewPGDirectory(pgPool)
	}
	resolver := auth.NewResolver(validator, directory)

	wsHandler := transport.NewHandler(eng, bus, resolver, cfg.ClientURL)
	checker := &health.Checker{Redis: redisClient, Postgres: pgPool}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Correlation())
	if cfg.OTLPEndpoint != "" {
		router.Use(otelgin.Middleware("chess-server"))
	}

	corsCfg := cors.DefaultConfig()
	if len(cfg.ClientURL) == 1 && cfg.ClientURL[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.ClientURL
	}
	corsCfg.AllowCredentials = !corsCfg.AllowAllOrigins
	router.Use(cors.New(corsCfg))

	router.GET("/ws", wsHandler.ServeWS)
	router.GET("/health", checker.Full)
	router.GET("/health/live", checker.Live)
	router.GET("/health/ready", checker.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/", ratelimit.Middleware(cfg.APIRateLimit, cfg.APIRateWindow, redisClient))
	transport.RegisterAPI(api, eng)

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()
	go eng.RunClockSweep(bgCtx, 500*time.Millisecond)
	go eng.RunJanitor(bgCtx, time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()
	logging.Info(ctx, "server listening", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info(ctx, "shutting down")
	bgCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "graceful shutdown failed", zap.Error(err))
	}
	logging.Info(ctx, "server stopped")
}
