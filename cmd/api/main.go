package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"

	"storeadmin/internal/config"
	"storeadmin/internal/consumer"
	"storeadmin/internal/database"
	"storeadmin/internal/handler"
	"storeadmin/internal/middleware"
	"storeadmin/internal/monitor"
	"storeadmin/internal/redis"
	"storeadmin/internal/repository"
	"storeadmin/internal/service/activation"
	"storeadmin/internal/service/auth"
	"storeadmin/internal/service/chat"
	"storeadmin/internal/service/client"
	"storeadmin/internal/service/events"
	"storeadmin/internal/service/order"
	"storeadmin/internal/service/settings"
	"storeadmin/internal/service/sync"
	"storeadmin/internal/upstream"
	"storeadmin/internal/utils"
	"storeadmin/pkg/cache"
	"storeadmin/pkg/limiter"
	"storeadmin/pkg/log"
	"storeadmin/pkg/queue"
	"storeadmin/pkg/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}
	config.GlobalConfig = cfg

	logConfig := log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}
	if err := log.Init(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := database.AutoMigrate(); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to migrate database")
	}

	if err := redis.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	db := database.GetDB()
	redisClient := redis.GetClient()

	// repositories
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	clientRepo := repository.NewClientRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)

	idGenerator, err := snowflake.NewIDGenerator(1)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create ID generator")
	}

	templateCache, err := cache.New(cfg.Cache.TemplateTTL)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create template cache")
	}

	messageQueue := queue.NewMemoryQueue(nil)
	defer messageQueue.Close()

	// marketplace client; the token comes from the settings row so a new
	// token entered in the UI takes effect without a restart
	marketplace := upstream.NewClient(&cfg.Upstream, func() string {
		s, err := settingsRepo.Get(context.Background())
		if err != nil {
			return ""
		}
		return s.APIToken
	})

	// jwt
	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.Expire,
		cfg.Security.JWT.RefreshTTL,
	)

	tracer, err := monitor.NewTracer(&monitor.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Server.Mode,
		JaegerEndpoint: cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize tracer")
	}
	defer tracer.Shutdown(context.Background())

	// services
	registry := activation.NewTemplateRegistry(templateRepo, marketplace, templateCache)
	engine := activation.NewEngine(registry)
	authService := auth.NewAuthService(userRepo, jwtManager, redisClient)
	linkerService := client.NewLinkerService(clientRepo, orderRepo, marketplace, idGenerator)
	orderService := order.NewOrderService(orderRepo, notificationRepo, engine, marketplace, linkerService)
	trackerService := chat.NewTrackerService(marketplace, orderRepo, redisClient, messageQueue, cfg.Monitor.ChatPollInterval)
	defer trackerService.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syncService sync.SyncService
	monitorService := settings.NewMonitorService(
		marketplace,
		settingsRepo,
		notificationRepo,
		redisClient,
		messageQueue,
		cfg.Monitor.ReconcileInterval,
		func() {
			// expired credentials: background loops stop until the
			// operator re-authenticates and the process restarts them
			if syncService != nil {
				syncService.Stop()
			}
		},
	)
	syncService = sync.NewSyncService(
		marketplace,
		orderRepo,
		engine,
		monitorService,
		messageQueue,
		idGenerator,
		cfg.Monitor.SyncInterval,
	)

	// verify the marketplace is reachable before serving traffic
	bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, time.Minute)
	if _, err := marketplace.Bootstrap(bootstrapCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Marketplace bootstrap failed, background loops will retry")
	} else {
		if err := registry.Refresh(ctx); err != nil {
			log.WithError(err).Warn("Initial template refresh failed")
		}
	}
	bootstrapCancel()

	// the hub must drain the fanout topics before the loops that publish
	// to them start
	eventHub := events.NewHub(messageQueue)
	if err := eventHub.Start(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to start event hub")
	}

	monitorService.Start(ctx)
	defer monitorService.Stop()
	syncService.Start(ctx)

	activationConsumer := consumer.NewActivationConsumer(orderService, messageQueue)
	if err := activationConsumer.Start(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to start activation consumer")
	}

	router := setupRouter(cfg, authService, orderService, linkerService, trackerService, monitorService, registry, eventHub, tracer, redisClient)

	// no server-level write timeout: the SSE event stream must stay open;
	// the JSON API is bounded by the per-request timeout middleware instead
	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Server forced to shutdown")
	}

	syncService.Stop()
	log.Info("Server exited")
}

func setupRouter(
	cfg *config.Config,
	authService auth.AuthService,
	orderService order.OrderService,
	linkerService client.LinkerService,
	trackerService chat.TrackerService,
	monitorService settings.MonitorService,
	registry activation.TemplateRegistry,
	eventHub events.Hub,
	tracer *monitor.Tracer,
	redisClient *redisv9.Client,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if cfg.Security.CORS.Enabled {
		router.Use(middleware.CORS(&cfg.Security.CORS))
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.IPRateLimit(cfg.RateLimit.PerIP.RPS, cfg.RateLimit.PerIP.Burst))
	}

	if cfg.Tracing.Enabled {
		router.Use(tracer.Middleware())
	}

	if cfg.Metrics.Enabled {
		metrics := monitor.Metrics()
		router.Use(metrics.GinMiddleware())
		router.GET(cfg.Metrics.Path, metrics.Handler())
	}

	router.GET("/health", healthCheck)
	router.GET("/ping", ping)

	authHandler := handler.NewAuthHandler(authService)
	orderHandler := handler.NewOrderHandler(orderService)
	clientHandler := handler.NewClientHandler(linkerService)
	chatHandler := handler.NewChatHandler(trackerService)
	notificationHandler := handler.NewNotificationHandler(monitorService)
	templateHandler := handler.NewTemplateHandler(registry)
	eventHandler := handler.NewEventHandler(eventHub)

	// a double-clicked transition button must not fire twice
	transitionLimiter := middleware.TransitionRateLimit(limiter.NewSlidingWindowLimiter(
		redisClient,
		cfg.RateLimit.ActivationSend.Limit,
		cfg.RateLimit.ActivationSend.Window,
	))

	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			requestTimeout := middleware.Timeout(cfg.Server.WriteTimeout)

			authGroup := v1.Group("/auth")
			authGroup.Use(requestTimeout)
			{
				authGroup.POST("/login", authHandler.Login)
				authGroup.POST("/refresh", authHandler.RefreshToken)
			}

			protected := v1.Group("")
			protected.Use(middleware.Auth(authService))

			// the SSE stream stays open for the life of the SPA tab, so it
			// is registered before the per-request timeout applies
			protected.GET("/events", eventHandler.Stream)

			protected.Use(requestTimeout)
			{
				protected.POST("/auth/logout", authHandler.Logout)
				protected.POST("/auth/change-password", authHandler.ChangePassword)

				orders := protected.Group("/orders")
				{
					orders.GET("", orderHandler.ListOrders)
					orders.GET("/:order_no", orderHandler.GetOrder)
					orders.POST("/:order_no/fulfill", orderHandler.Fulfill)
					orders.GET("/:order_no/activation/preview", orderHandler.PreviewActivation)
					orders.POST("/:order_no/activation", transitionLimiter, orderHandler.SendActivation)
					orders.POST("/:order_no/complete", orderHandler.Complete)
					orders.POST("/:order_no/finish", orderHandler.Finish)
					orders.POST("/:order_no/cancel", orderHandler.Cancel)
					orders.POST("/:order_no/link", clientHandler.LinkOrder)
					orders.POST("/:order_no/client", clientHandler.CreateClient)

					orders.GET("/:order_no/chat", chatHandler.GetMessages)
					orders.POST("/:order_no/chat", chatHandler.SendMessage)
					orders.POST("/:order_no/chat/read", chatHandler.MarkRead)
					orders.GET("/:order_no/chat/unread", chatHandler.UnreadCount)
					orders.POST("/:order_no/chat/open", chatHandler.OpenThread)
					orders.POST("/:order_no/chat/close", chatHandler.CloseThread)
				}

				clients := protected.Group("/clients")
				{
					clients.GET("", clientHandler.ListClients)
					clients.GET("/:id", clientHandler.GetClient)
				}

				notifications := protected.Group("/notifications")
				{
					notifications.GET("", notificationHandler.ListNotifications)
					notifications.POST("/:id/read", notificationHandler.MarkRead)
					notifications.DELETE("/:id", notificationHandler.Dismiss)
				}

				protected.GET("/settings", notificationHandler.GetSettings)

				templates := protected.Group("/templates")
				{
					templates.GET("", templateHandler.ListTemplates)
					templates.POST("/refresh", templateHandler.RefreshTemplates)
				}
			}
		}
	}

	return router
}

func healthCheck(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "ok"}

	if err := database.Health(); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}
	if err := redis.Health(); err != nil {
		status = http.StatusServiceUnavailable
		checks["redis"] = err.Error()
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
