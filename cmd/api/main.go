package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"

	"github.com/educhat/backend/internal/config"
	"github.com/educhat/backend/internal/handler"
	"github.com/educhat/backend/internal/service/ai"
	"github.com/educhat/backend/internal/service/auth"
	"github.com/educhat/backend/internal/service/chat"
	"github.com/educhat/backend/internal/service/quiz"
	"github.com/educhat/backend/internal/store"
	"github.com/educhat/backend/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	backend, err := openBackend(cfg.Database)
	if err != nil {
		log.Fatalf("failed to open %s backend: %v", cfg.Database.Driver, err)
	}
	log.Printf("storage backend: %s", cfg.Database.Driver)

	// Redis fronts message reads and holds revoked sessions when configured
	var messages store.MessageStore = backend
	var revocations auth.Revocations = auth.NewMemoryRevocations()
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", cfg.Redis.Addr(), err)
		}
		messages = store.NewCachedMessages(backend, client)
		revocations = auth.NewRedisRevocations(client)
		log.Printf("redis connected at %s", cfg.Redis.Addr())
	} else {
		log.Println("REDIS_HOST 未配置，使用内存会话吊销且不缓存消息")
	}

	authService := auth.NewService(backend, revocations, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// Initialize AI service
	var streamer chat.Streamer
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			streamer = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	chatService := chat.NewService(messages, streamer, cfg.Chat.HistoryLimit)
	quizService := quiz.NewService(backend, cfg.Quiz.AdvanceDelay)

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("failed to load page templates: %v", err)
	}

	router := handler.NewRouter(handler.Services{
		Auth:         authService,
		Chat:         chatService,
		Quiz:         quizService,
		Renderer:     renderer,
		FrontendURL:  cfg.Server.FrontendURL,
		AdvanceDelay: cfg.Quiz.AdvanceDelay,
	})

	startServer(ctx, cfg.Server, router)
}

func openBackend(cfg config.DatabaseConfig) (store.Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewSeededMemoryStore(), nil
	case config.DriverSQLite:
		return store.OpenGorm(sqlite.Open(cfg.SQLitePath))
	case config.DriverPostgres:
		return store.OpenGorm(postgres.Open(cfg.DSN()))
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("EduChat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
