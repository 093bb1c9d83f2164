package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cart-service/config"
	"cart-service/internal/api"
	"cart-service/internal/broker"
	"cart-service/internal/discount"
	"cart-service/internal/persistence"
	"cart-service/internal/redisclient"
	"cart-service/internal/service"
	"cart-service/internal/store"
	"cart-service/internal/util"
	"cart-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, "cart-service", cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting cart service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	tp, err := util.InitTracer("cart-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected")

	readiness := map[string]api.ReadinessCheck{"postgres": db.Ping}

	var kv persistence.KV
	var idempotency service.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		kv = redisClient
		idempotency = redisClient
		readiness["redis"] = redisClient.Ping
		logger.Info("Redis connected")
	} else {
		kv = persistence.NewMemoryKV()
		logger.Warn("REDIS_ADDR not set, carts are kept in memory only")
	}

	adapter := persistence.NewAdapter(kv, persistence.WithFreshness(cfg.Cart.Freshness))

	snapshots := worker.NewSnapshotWorker(cfg.Cart.PersistQueueSize, cfg.Cart.PersistTimeout)
	snapshots.AddSink("persistence", service.PersistenceSink(adapter))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var usageWorker *worker.UsageWorker
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCartEvents)
		defer producer.Close()
		snapshots.AddSink("events", service.EventSink(broker.NewEventPublisher(producer)))
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicCartEvents))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		usageWorker = worker.NewUsageWorker(consumer, db)
		go func() {
			if err := usageWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Usage worker error", zap.Error(err))
			}
		}()
	}

	go func() {
		_ = snapshots.Start(workerCtx)
	}()

	cartService := service.NewCartService(
		adapter,
		discount.NewStoreValidator(db),
		snapshots,
		idempotency,
		service.Config{ValidationTimeout: cfg.Cart.ValidationTimeout},
	)

	if cfg.Cart.SessionIdleTTL > 0 {
		go evictIdleSessions(workerCtx, cartService, cfg.Cart.SessionIdleTTL)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(cartService, readiness)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	snapshots.Wait()
	if usageWorker != nil {
		_ = usageWorker.Stop()
	}

	logger.Info("Server exited")
}

// evictIdleSessions drops in-memory sessions nobody has touched for ttl
func evictIdleSessions(ctx context.Context, cartService *service.CartService, ttl time.Duration) {
	logger := util.GetLogger()
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cartService.EvictIdle(ttl); n > 0 {
				logger.Debug("Evicted idle cart sessions", zap.Int("count", n))
			}
		}
	}
}
