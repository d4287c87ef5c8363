package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
	"github.com/mbeoliero/inbox/internal/gateway"
	"github.com/mbeoliero/inbox/internal/handler"
	"github.com/mbeoliero/inbox/internal/queue"
	"github.com/mbeoliero/inbox/internal/repository"
	"github.com/mbeoliero/inbox/internal/router"
	"github.com/mbeoliero/inbox/internal/service"
	"github.com/mbeoliero/inbox/pkg/constant"
	"github.com/mbeoliero/inbox/pkg/idgen"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s", cfg.Server.Mode)

	// Initialize Redis key prefix
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	gen, err := idgen.NewSonyflakeGenerator(cfg.Server.MachineId)
	if err != nil {
		log.CtxError(ctx, "failed to initialize id generator: %v", err)
		panic(err)
	}
	idgen.SetDefaultGenerator(gen)

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	// Check database connection
	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	// Initialize services, every write is published on the per-user feed
	convService := service.NewConversationService(repos, cfg)
	msgService := service.NewMessageService(repos, cfg)
	notifService := service.NewNotificationService(repos, cfg)
	convService.SetPublisher(repos.Feed)
	msgService.SetPublisher(repos.Feed)
	notifService.SetPublisher(repos.Feed)

	// Deferred notification delivery
	if cfg.Queue.Enabled {
		queueClient := queue.NewClient(cfg)
		defer queueClient.Close()
		notifService.SetScheduler(queueClient)

		queueServer := queue.NewServer(cfg)
		queueServer.Register(service.TaskNotificationDeliver, notifService.HandleDeliverTask)
		if err := queueServer.Start(); err != nil {
			log.CtxError(ctx, "failed to start queue server: %v", err)
			panic(err)
		}
		defer queueServer.Shutdown()
		log.CtxInfo(ctx, "queue server started: queue=%s", cfg.Queue.Name)
	}

	// Initialize WebSocket server
	wsServer := gateway.NewWsServer(cfg, repos.Feed, msgService, convService, notifService)

	// Start WebSocket server
	wsServer.Run(ctx)
	log.CtxInfo(ctx, "websocket server started")

	// Initialize handlers
	handlers := &router.Handlers{
		Conversation: handler.NewConversationHandler(convService),
		Message:      handler.NewMessageHandler(msgService),
		Notification: handler.NewNotificationHandler(notifService),
	}

	// Create Hertz server
	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)

	// Setup routes
	router.SetupRouter(h, cfg, handlers, wsServer)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	// Start server in goroutine
	go func() {
		h.Spin()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")
	cancel()

	// Graceful shutdown
	if err := h.Shutdown(context.Background()); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	log.CtxInfo(ctx, "server stopped")
}
