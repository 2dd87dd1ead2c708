package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pothole-ingest-pipeline/auth"
	"pothole-ingest-pipeline/config"
	"pothole-ingest-pipeline/database"
	"pothole-ingest-pipeline/gemini"
	"pothole-ingest-pipeline/handlers"
	"pothole-ingest-pipeline/metrics"
	"pothole-ingest-pipeline/pipeline"
	"pothole-ingest-pipeline/rabbitmq"
	"pothole-ingest-pipeline/storage"
	"pothole-ingest-pipeline/tracker"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	// Validate required configuration
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	// Initialize object storage
	objects, err := storage.NewObjectStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	// Initialize RabbitMQ publisher
	var publisher pipeline.Publisher
	amqpPublisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPReportRoutingKey)
	if err != nil {
		log.Warnf("Failed to initialize RabbitMQ publisher: %v", err)
		// Continue without publisher - ingestion will still work
	} else {
		publisher = amqpPublisher
		defer amqpPublisher.Close()
	}

	model := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	log.Infof("Annotator provider=%s model=%s", model.SourceName(), cfg.GeminiModel)

	allocator := tracker.NewAllocator(db)
	pipe := pipeline.New(db, objects, allocator, model, publisher)

	metrics.Register()

	// Initialize handlers
	h := handlers.NewHandlers(db, pipe)

	// Setup HTTP server
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v3")
	api.GET("/health", h.HealthCheck)

	protected := api.Group("")
	protected.Use(auth.Middleware(cfg.JWKSURL, cfg.JWTAudience))
	{
		protected.POST("/analyze", h.Analyze)
		protected.GET("/status/:tracking_id", h.StatusLookup)
		protected.GET("/myreports", h.MyReports)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
