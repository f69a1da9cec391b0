package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ledgerkeep/billing-console/internal/giftcards"
	"github.com/ledgerkeep/billing-console/internal/reminders"
	"github.com/ledgerkeep/billing-console/internal/webhooks"
	"github.com/ledgerkeep/billing-console/pkg/common"
	"github.com/ledgerkeep/billing-console/pkg/config"
	"github.com/ledgerkeep/billing-console/pkg/logger"
	"github.com/ledgerkeep/billing-console/pkg/middleware"
	"github.com/ledgerkeep/billing-console/pkg/redis"
	"github.com/ledgerkeep/billing-console/pkg/squareapi"
)

const serviceVersion = "0.3.0"

func main() {
	// Load configuration
	cfg, err := config.Load("billing-console")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Gift card cache, remote client, service and sync coordinator
	cache := giftcards.NewCache(cfg.Sync.SnapshotPath)
	if err := cache.Open(); err != nil {
		logger.Fatal("Failed to open gift card cache", zap.Error(err))
	}

	apiClient := squareapi.NewClient(&cfg.Square)
	service := giftcards.NewService(apiClient, cfg.Square.LocationID)
	coordinator := giftcards.NewCoordinator(service, cache, cfg.Sync.ReconcileInterval)

	// Reminder queue
	queue := reminders.NewQueue(cfg.Reminders.QueuePath)
	if err := queue.Open(); err != nil {
		logger.Fatal("Failed to open reminder queue", zap.Error(err))
	}
	reminderWorker := reminders.NewWorker(queue, cfg.Reminders.ProcessInterval)

	// Redis for webhook event deduplication (optional)
	var deduper webhooks.Deduper
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		deduper = redisClient
		logger.Info("Connected to Redis")
	}

	webhookHandler := webhooks.NewHandler(cfg.Square.WebhookSignatureKey, coordinator, queue, deduper)
	giftCardHandler := giftcards.NewHandler(service, cache, coordinator)
	reminderHandler := reminders.NewHandler(queue)

	// Background workers
	if !cfg.Sync.Disabled {
		go coordinator.Start(ctx)
		defer coordinator.Stop()
	} else {
		logger.Info("Gift card sync disabled by configuration")
	}
	if !cfg.Reminders.Disabled {
		go reminderWorker.Start(ctx)
		defer reminderWorker.Stop()
	}

	router := buildRouter(cfg, cache, giftCardHandler, reminderHandler, webhookHandler, redisClient)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Billing console starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.Config,
	cache *giftcards.Cache,
	giftCardHandler *giftcards.Handler,
	reminderHandler *reminders.Handler,
	webhookHandler *webhooks.Handler,
	redisClient *redis.Client,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics(cfg.Server.ServiceName))
	router.Use(middleware.SecurityHeaders())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check and metrics (no auth required)
	healthChecks := map[string]func() error{
		"snapshot": cache.Health,
	}
	if redisClient != nil {
		healthChecks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		}
	}
	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, serviceVersion, healthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhook intake (signature-verified, no auth)
	router.POST("/webhooks/square", webhookHandler.HandleEvent)

	jwtSecret := cfg.JWT.Secret
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtSecret))
	{
		cards := api.Group("/gift-cards")
		{
			cards.GET("", giftCardHandler.ListGiftCards)
			cards.GET("/cached", giftCardHandler.ListCachedGiftCards)
			cards.GET("/search", giftCardHandler.SearchGiftCard)
			cards.GET("/activities", giftCardHandler.ListActivities)
			cards.GET("/sync-health", giftCardHandler.SyncHealth)
			cards.POST("/issue", giftCardHandler.IssueGiftCard)
			cards.GET("/:id", giftCardHandler.GetGiftCardDetail)
			cards.POST("/:id/load", giftCardHandler.LoadGiftCard)
			cards.POST("/:id/block", giftCardHandler.BlockGiftCard)
			cards.POST("/:id/unblock", giftCardHandler.UnblockGiftCard)
			cards.POST("/:id/adjust", giftCardHandler.AdjustGiftCard)
			cards.POST("/:id/sync", giftCardHandler.SyncGiftCard)

			admin := cards.Group("/admin", middleware.RequireRole("admin"))
			{
				admin.POST("/reconcile", giftCardHandler.TriggerReconcile)
			}
		}

		rem := api.Group("/reminders")
		{
			rem.GET("", reminderHandler.ListReminders)
			rem.POST("/run", reminderHandler.RunNow)
		}
	}

	return router
}
