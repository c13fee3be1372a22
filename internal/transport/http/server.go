package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedsync/internal/cache"
	"feedsync/internal/config"
	"feedsync/internal/database"
	"feedsync/internal/handler"
	"feedsync/internal/identity"
	"feedsync/internal/optimistic"
	"feedsync/internal/queue"
	"feedsync/internal/redis"
	"feedsync/internal/remote"
	"feedsync/internal/repository"
	"feedsync/internal/service"
	"feedsync/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Session and remote API client
	session := identity.NewSession(cfg.JWTSecret)
	if cfg.AccessToken != "" {
		if err := session.SetToken(cfg.AccessToken); err != nil {
			log.Printf("ACCESS_TOKEN rejected, starting signed out: %v", err)
		}
	}
	api := remote.NewClient(cfg.APIBaseURL, time.Duration(cfg.APITimeoutSeconds)*time.Second, session)

	// 3. Cache store and mutation executor
	store := cache.NewStore()
	exec := optimistic.NewExecutor(store)

	// 4. Mutation journal (optional)
	var mutationRepo repository.MutationRepository
	if cfg.JournalEnabled() {
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		mutationRepo = repository.NewMutationRepository(db)
		if err := mutationRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare mutation journal: %w", err)
		}
		exec.SetJournal(mutationRepo)
	} else {
		log.Println("DB_HOST not set, mutation journal disabled")
	}

	// 5. Services
	feedService := service.NewFeedService(store, api, session, cfg.FeedPageSize)
	postService := service.NewPostService(exec, session, api)
	followService := service.NewFollowService(exec, session, api)

	// 6. Cross-instance sync (optional)
	if cfg.SyncEnabled() {
		redisClient, err := redis.NewClient(cfg.RedisURL, cfg.InstanceID)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Printf("Connected to Redis, instance=%s", cfg.InstanceID)

		publisher := queue.NewPublisher(redisClient.Client)
		postService.SetPublisher(publisher, cfg.InstanceID)
		followService.SetPublisher(publisher, cfg.InstanceID)

		eventHandler := worker.NewHandler(store, feedService, cfg.InstanceID)
		manager := worker.NewManager(queue.NewConsumer(redisClient.Client), eventHandler, worker.ManagerConfig{
			WorkerCount: cfg.WorkerCount,
		})
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop(context.Background())
	} else {
		log.Println("REDIS_URL not set, cross-instance sync disabled")
	}

	// 7. Handlers and router
	router := NewRouter(RouterConfig{
		SessionHandler:  handler.NewSessionHandler(session, feedService),
		FeedHandler:     handler.NewFeedHandler(feedService),
		UserHandler:     handler.NewUserHandler(feedService, followService),
		PostHandler:     handler.NewPostHandler(postService, feedService),
		MutationHandler: handler.NewMutationHandler(mutationRepo),
		Identity:        session,
	})

	// 8. Serve until interrupted
	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
