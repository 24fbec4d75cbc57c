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

	"delivery-ledger/config"
	"delivery-ledger/internal/api"
	"delivery-ledger/internal/broker"
	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/redisclient"
	"delivery-ledger/internal/service"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"
	"delivery-ledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting delivery ledger")

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	st := store.NewStore()
	clk := clock.Real()

	var archive *store.Archive
	if cfg.Database.ArchiveEnabled {
		archive, err = store.NewArchive(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer archive.Close()

		if err := archive.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare archive schema: %v", err)
		}
		logger.Info("Event archive connected")
	}

	var mirror service.LocationMirror
	var redisClient *redisclient.Client
	if cfg.Redis.MirrorEnabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		mirror = redisClient
		logger.Info("Redis location mirror connected")
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))
	}

	inventoryService := service.NewInventoryService(st, publisher, clk)
	orderService := service.NewOrderService(st, publisher, clk, cfg.Business.StrictOrderTransitions)
	ledgerService := service.NewLedgerService(st, inventoryService, publisher, clk)
	messagingService := service.NewMessagingService(st, clk)

	svc := api.Services{
		Orders:     orderService,
		Inventory:  inventoryService,
		Ledger:     ledgerService,
		Loyalty:    service.NewLoyaltyService(st, clk),
		Reputation: service.NewReputationService(st, clk),
		Geo:        service.NewGeoService(st, mirror, clk, cfg.Business.ZoneVertexRadiusKm),
		Messaging:  messagingService,
		Directory:  service.NewDirectoryService(st, clk),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var workers []*worker.Worker
	if cfg.Kafka.Enabled {
		group := func(name string) *broker.Consumer {
			return broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup+"-"+name)
		}

		var processed service.ProcessedEvents
		if archive != nil {
			processed = archive
			workers = append(workers, worker.NewArchiveWorker(group("archive"), archive))
		}

		saga := service.NewSagaOrchestrator(orderService, ledgerService, processed)
		workers = append(workers,
			worker.NewNotificationWorker(group("notifications"), messagingService),
			worker.NewSagaWorker(group("saga"), saga),
		)
	}

	for _, w := range workers {
		go func(w *worker.Worker) {
			if err := w.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Worker stopped", zap.Error(err))
			}
		}(w)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(svc)
	if archive != nil {
		handler.WithOrderHistory(archive).WithReadinessCheck("postgres", archive)
	}
	if redisClient != nil {
		handler.WithReadinessCheck("redis", redisClient)
	}
	handler.SetupRoutes(router)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: corsHandler.Handler(router),
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
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
	for _, w := range workers {
		if err := w.Stop(); err != nil {
			logger.Warn("Failed to stop worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
