package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aufy/internal/cache"
	"aufy/internal/config"
	"aufy/internal/database"
	"aufy/internal/handler"
	"aufy/internal/queue"
	"aufy/internal/redis"
	"aufy/internal/repository"
	"aufy/internal/service"
	"aufy/internal/worker"
)

// Run wires the whole system together and serves until SIGINT/SIGTERM.
func Run() error {
	// 1. Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Stores
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(cfg)
	defer redisClient.Close()

	// Cache and events degrade gracefully, but refuse to start against
	// an unreachable Redis rather than silently running uncached.
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}

	// 3. Repositories
	accountRepo := repository.NewAccountRepository(db)
	relRepo := repository.NewRelationshipRepository(db)
	crushRepo := repository.NewCrushRepository(db)
	postRepo := repository.NewPostRepository(db)

	// 4. Cache, events
	store := cache.NewStore(redisClient.Client)
	coherence := cache.NewCoherence(store)
	publisher := queue.NewPublisher(redisClient.Client)

	// 5. Services
	followService := service.NewFollowService(relRepo, accountRepo, db, publisher, coherence, store)
	privacyService := service.NewPrivacyService(relRepo, accountRepo)
	profileService := service.NewProfileService(accountRepo, relRepo, privacyService, store)
	crushService := service.NewCrushService(crushRepo, accountRepo, relRepo, publisher)
	feedService := service.NewFeedService(postRepo, relRepo, accountRepo, store)
	discoveryService := service.NewDiscoveryService(postRepo, relRepo, accountRepo, store)
	reconcileService := service.NewReconcileService(accountRepo, coherence)

	// 6. Workers
	consumer := queue.NewConsumer(redisClient.Client)
	workerManager := worker.NewManager(consumer, worker.NewHandler(nil), reconcileService, worker.ManagerConfig{
		WorkerCount:       cfg.WorkerCount,
		ReconcileInterval: time.Duration(cfg.ReconcileInterval) * time.Minute,
	})
	if err := workerManager.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer workerManager.Stop()

	// 7. HTTP
	router := NewRouter(RouterConfig{
		ProfileHandler: handler.NewProfileHandler(profileService),
		FollowHandler:  handler.NewFollowHandler(followService, privacyService),
		FeedHandler:    handler.NewFeedHandler(feedService, discoveryService),
		CrushHandler:   handler.NewCrushHandler(crushService),
		JWTSecret:      cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Printf("Received %v, shutting down...", sig)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
