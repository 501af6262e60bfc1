package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jumbleapp/jumble/config"
	"github.com/jumbleapp/jumble/internal/handlers/ws"
	sessionRepo "github.com/jumbleapp/jumble/internal/repositories/session"
	sessionSvc "github.com/jumbleapp/jumble/internal/services/session"
	"github.com/jumbleapp/jumble/internal/shuffle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	// Initialize the shared Redis backend connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		sugar.Fatalw("failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
	}

	// Initialize the session repository
	repo, err := sessionRepo.NewRedis(&sessionRepo.Config{
		RedisClient: redisClient,
		TTL:         cfg.Session.TTL,
	})
	if err != nil {
		sugar.Fatalw("failed to create session repository", "error", err)
	}

	// Initialize the shuffler
	shuffler := shuffle.New(&shuffle.Config{})

	// Initialize the session service
	svc, err := sessionSvc.New(&sessionSvc.Config{
		Repo:     repo,
		Shuffler: shuffler,
		Logger:   sugar,
	})
	if err != nil {
		sugar.Fatalw("failed to create session service", "error", err)
	}

	// Initialize the websocket gateway
	handler, err := ws.New(&ws.Config{
		Service: svc,
		Repo:    repo,
		Logger:  sugar,
	})
	if err != nil {
		sugar.Fatalw("failed to create websocket handler", "error", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: mux,
	}

	go func() {
		sugar.Infow("server listening", "addr", cfg.ListenAddr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown error", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}
