package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lobbyd/lobbyd/internal/factory"
	"github.com/lobbyd/lobbyd/internal/gateway"
	redismirror "github.com/lobbyd/lobbyd/internal/mirror/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Build factory config from environment
	cfg := factory.Config{
		Logger:       logger,
		HostMode:     os.Getenv("HOST_MODE") == "true",
		AdminKeyHash: os.Getenv("ADMIN_KEY_HASH"),
	}

	if v := os.Getenv("PING_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid PING_INTERVAL", slog.String("value", v))
			os.Exit(1)
		}
		cfg.PingInterval = d
	}

	// Configure the Redis mirror if a URL is provided
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		mirrorCfg := redismirror.DefaultConfig()
		mirrorCfg.URL = redisURL
		cfg.RedisConfig = &mirrorCfg
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Stop()

	// Create gateway router
	router := gateway.NewRouter(gateway.RouterConfig{
		Logger:  logger,
		Hub:     app.Hub,
		Dir:     app.Directory,
		Admin:   app.Admin,
		Match:   app.Match,
		BaseCtx: ctx,
	})

	// Create server
	serverConfig := gateway.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("value", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := gateway.NewServer(router, serverConfig, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
