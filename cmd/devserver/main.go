package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mapquester/config"
	"mapquester/handlers"
	"mapquester/services"
	"mapquester/utils/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}
	logger.SetDebug(cfg.Debug)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Storage: MongoDB when configured, memory otherwise
	var (
		pointRepo services.PointRepository = services.NewMemoryPointRepository()
		userRepo  services.UserRepository  = services.NewMemoryUserRepository()
	)
	if cfg.MongoURI != "" {
		store, err := services.NewMongoStore(ctx, cfg.MongoURI)
		if err != nil {
			logger.Fatal("MongoDB connection failed: %v", err)
		}
		defer store.Close(context.Background())
		pointRepo, userRepo = store.Points(), store.Users()
	} else {
		logger.Info("MONGODB_URI not set, using in-memory storage")
	}

	// Redis GEO index for points and user pings
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("Redis unavailable at %s, geo index disabled: %v", cfg.RedisAddr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	tokens := services.NewTokenIssuer(cfg.JWTSecret, 0, 0)
	router := handlers.SetupRoutes(handlers.Services{
		Points: services.NewPointService(pointRepo, userRepo, redisClient, cfg.MediaDir),
		Users:  services.NewUserService(userRepo, tokens, redisClient),
		Tokens: tokens,
	}, handlers.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.AllowedOrigins,
		MediaDir:       cfg.MediaDir,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Server starting on %s", cfg.Port)
	if err := serve(sigCtx, srv, 10*time.Second); err != nil {
		logger.Error("Server stopped: %v", err)
	}
}

// serve runs srv until it fails or ctx is cancelled, then drains open
// requests for up to grace. A shutdown requested through ctx returns nil.
func serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
