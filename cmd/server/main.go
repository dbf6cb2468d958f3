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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"scholarhub/infrastructure/cache"
	"scholarhub/infrastructure/db"
	"scholarhub/infrastructure/ws"
	"scholarhub/internal/config"
	httpDelivery "scholarhub/internal/delivery/http"
	wsDelivery "scholarhub/internal/delivery/websocket"
	"scholarhub/internal/entity"
	"scholarhub/internal/ratelimit"
	"scholarhub/internal/repository"
	"scholarhub/pkg/token"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "err", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	hubCfg, err := cfg.HubConfig()
	if err != nil {
		return err
	}

	hub := ws.New(hubCfg, logger)
	ctx := context.Background()

	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitConfig(), logger)
		logger.Info("using redis connection limiter", "addr", cfg.Redis.Addr)
	} else {
		memCache := cache.NewMemCache(time.Minute)
		defer memCache.Close()
		limiter = ratelimit.NewMemoryLimiter(memCache, cfg.RateLimitConfig())
		logger.Info("using in-memory connection limiter")
	}

	if cfg.Mongo.URI != "" {
		store, err := db.NewStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		presenceRepo := repository.NewPresenceRepository(store.DB)
		hub.SetOnClientRegister(func(c *ws.Client) error {
			return presenceRepo.SetOnline(ctx, entity.Presence{
				ClientID:    c.ID,
				Group:       c.Group,
				RemoteAddr:  c.RemoteAddr,
				ConnectedAt: c.ConnectedAt,
			})
		})
		hub.SetOnClientUnregister(func(c *ws.Client) error {
			return presenceRepo.SetOffline(ctx, c.ID)
		})
		logger.Info("presence repository enabled", "database", cfg.Mongo.Database)
	}

	var tokens *token.Manager
	if cfg.Auth.JWTSecret != "" {
		tokens = token.NewManager(cfg.Auth.JWTSecret)
	}
	guard := httpDelivery.NewControlGuard(tokens, cfg.Auth.APIKeyHash, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	wsHandler := wsDelivery.NewHandler(hub, limiter, cfg.Server.AllowedOrigins, logger)
	control := httpDelivery.NewControlHandler(hub, logger)
	httpDelivery.MapRoutes(router, control, wsHandler, guard, cfg.Server.Prefix)

	// No WriteTimeout: it would put a deadline on the hijacked websocket
	// connections. The hub manages its own write deadlines.
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("server listening", "addr", cfg.Server.Port, "prefix", cfg.Server.Prefix)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("http shutdown failed", "err", err)
	}
	if err := hub.Shutdown(hubCfg.DrainGrace); err != nil {
		logger.Error("hub shutdown incomplete", "err", err)
	}
	logger.Info("shutdown complete")
	return nil
}
