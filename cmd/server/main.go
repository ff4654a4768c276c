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

	"checkout-service/config"
	"checkout-service/internal/api"
	"checkout-service/internal/broker"
	"checkout-service/internal/gateway"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/store/memstore"
	"checkout-service/internal/store/mongostore"
	"checkout-service/internal/store/sqlitestore"
	"checkout-service/internal/util"
	"checkout-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout service")

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()
	logger.Info("Store connected", zap.String("driver", cfg.Database.Driver))

	var cache service.VerifiedPaymentCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache = redisClient
		logger.Info("Redis connected")
	}

	var events service.EventPublisher = broker.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayment)
		defer producer.Close()
		events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	rzp := gateway.NewRazorpayClient(gateway.Config{
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
	})

	couponService := service.NewCouponService(db, events, service.GiftCouponConfig{
		DiscountPercent: cfg.Business.GiftDiscountPercent,
		Validity:        cfg.Business.GiftValidity,
	})

	var gifts service.GiftDispatcher = service.NewInlineGiftDispatcher(couponService)
	if cfg.Kafka.GiftCouponAsync {
		gifts = service.NewEventGiftDispatcher(events)
	}

	checkoutService := service.NewCheckoutService(db, rzp, gifts, events, service.CheckoutConfig{
		KeyID:              cfg.Gateway.KeyID,
		Currency:           cfg.Gateway.Currency,
		GiftThresholdMinor: cfg.Business.GiftThresholdMinor,
	})
	verifier := service.NewPaymentVerifier(db, db, rzp, gifts, events, cache, service.VerifierConfig{
		KeySecret:          cfg.Gateway.KeySecret,
		GiftThresholdMinor: cfg.Business.GiftThresholdMinor,
		VerifiedPaymentTTL: cfg.Redis.VerifiedPaymentTTL,
	})
	analyticsService := service.NewAnalyticsService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var giftWorker *worker.GiftCouponWorker
	if cfg.Kafka.GiftCouponAsync {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayment, cfg.Kafka.ConsumerGroup)
		giftWorker = worker.NewGiftCouponWorker(consumer, couponService)
		go func() {
			if err := giftWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Gift coupon worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.CookieName)
	handler := api.NewHandler(checkoutService, verifier, couponService, analyticsService, auth)
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

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if giftWorker != nil {
		if err := giftWorker.Stop(); err != nil {
			logger.Error("Error stopping gift coupon worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return store.NewPostgresStore(cfg.URL)
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "sqlite":
		return sqlitestore.New(cfg.SQLitePath)
	case "memory":
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
}
