package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"parlour/internal/attendance"
	"parlour/internal/auth"
	"parlour/internal/config"
	"parlour/internal/employee"
	"parlour/internal/handler"
	"parlour/internal/httpmiddleware"
	"parlour/internal/logger"
	"parlour/internal/notify"
	"parlour/internal/seed"
	"parlour/internal/store"
	"parlour/internal/task"
)

const (
	apiLimitMessage  = "Too many requests from this IP, please try again after 15 minutes"
	authLimitMessage = "Too many login attempts from this IP, please try again after 15 minutes"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := cfg.MongoURI
	if cfg.StoreBackend == "postgres" {
		url = cfg.DatabaseURL
	}
	st, err := store.Open(ctx, cfg.StoreBackend, url, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			slog.Warn("store close failed", "err", err)
		}
	}()
	slog.Info("store connected", "backend", cfg.StoreBackend)

	var broker notify.Broker
	if cfg.BrokerBackend == "redis" {
		var rdb *redis.Client
		rdb, err = store.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		broker = notify.NewRedisBroker(rdb, cfg.BrokerChannel)
	} else {
		broker = notify.NewInMemory(256)
	}
	hub := notify.NewHub(broker)
	if err := hub.Start(ctx); err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	hasher := auth.NewHasher(cfg.BcryptCost)
	authSvc := auth.NewService(st, hasher, issuer, auth.WithLockout(auth.LockoutPolicy{
		MaxAttempts:  cfg.LockoutMaxAttempts,
		LockDuration: cfg.LockoutDuration,
	}))

	if cfg.SeedOnStart {
		if _, err := seed.Run(ctx, st, hasher, false); err != nil {
			return err
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger("/health", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders(cfg.Production()))
	r.Use(httpmiddleware.NewIPLimiter(cfg.RateLimitPerMin, apiLimitMessage).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.New(handler.Deps{
		Auth:        authSvc,
		Employees:   employee.NewService(st),
		Tasks:       task.NewService(st, st),
		Attendance:  attendance.NewService(st, st, hub),
		Socket:      notify.NewSocketHandler(hub, authSvc, cfg.SocketClientBroadcast),
		AuthLimiter: httpmiddleware.NewIPLimiter(cfg.AuthRateLimitPerMin, authLimitMessage).GinMiddleware(),
		Health: []handler.HealthCheck{
			{Name: "store", Check: st.Ping},
			{Name: "broker", Check: broker.Ping},
		},
	}).Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced shutdown", "err", err)
	}
	slog.Info("server exited")
	return nil
}
