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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"furnish-service/config"
	"furnish-service/internal/api"
	"furnish-service/internal/broker"
	"furnish-service/internal/matcher"
	"furnish-service/internal/redisclient"
	"furnish-service/internal/service"
	"furnish-service/internal/store"
	"furnish-service/internal/util"
	"furnish-service/internal/worker"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting furnish service")

	tp, err := util.InitTracer(util.ServiceName, util.TracerOptions{
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		SampleRate:     cfg.Observ.TraceSampleRate,
	})
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

	tables, err := config.LoadTables(cfg.Matcher)
	if err != nil {
		log.Fatalf("Failed to load matcher tables: %v", err)
	}
	logger.Info("Matcher tables loaded",
		zap.String("path", cfg.Matcher.TablesPath),
		zap.Int("room_types", len(tables.Requirements)))

	db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	if cfg.Database.SeedPath != "" {
		seedCatalog(ctx, db, cfg.Database.SeedPath, logger)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDesign)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	imageURL := publicImageURL(cfg.Images.PublicURL)
	m := matcher.New(tables, db,
		matcher.WithLogger(logger.Named("matcher")),
		matcher.WithImageURL(imageURL),
		matcher.WithObserver(util.SlotMetrics{}),
	)

	designService := service.NewDesignService(db, db, redisClient, eventPublisher, m, service.Settings{
		IdempotencyTTL: time.Duration(cfg.Business.IdempotencyTTLSeconds) * time.Second,
		LockTTL:        time.Duration(cfg.Business.LockTTLSeconds) * time.Second,
		FurnishTimeout: time.Duration(cfg.Business.FurnishTimeoutSeconds) * time.Second,
		ImageURL:       imageURL,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	designConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicDesign, cfg.Kafka.ConsumerGroup)
	designWorker := worker.NewDesignWorker(designConsumer, designService)
	go func() {
		if err := designWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Design worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(designService,
		api.ReadinessCheck{Name: "database", Ping: db.Ping},
		api.ReadinessCheck{Name: "redis", Ping: redisClient.Ping},
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	designWorker.Stop()

	log.Println("Server exited")
}

// seedCatalog loads products from a JSON file. Existing rows are left untouched.
func seedCatalog(ctx context.Context, db *store.Store, path string, logger *zap.Logger) {
	products, err := store.LoadProductsFromFile(path)
	if err != nil {
		logger.Error("Failed to read catalog seed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := db.UpsertProducts(ctx, products); err != nil {
		logger.Error("Failed to seed catalog", zap.String("path", path), zap.Error(err))
		return
	}
	count, _ := db.CountProducts(ctx)
	logger.Info("Catalog seeded", zap.Int("loaded", len(products)), zap.Int("total", count))
}

// publicImageURL resolves image keys against base, or leaves them as-is without one
func publicImageURL(base string) matcher.ImageURLFunc {
	if base == "" {
		return func(key string) string { return key }
	}
	return func(key string) string { return base + "/" + key }
}
