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

	"github.com/activmedica/backend/internal/adapters/cache"
	"github.com/activmedica/backend/internal/adapters/extraction"
	"github.com/activmedica/backend/internal/adapters/records"
	"github.com/activmedica/backend/internal/adapters/rendering"
	"github.com/activmedica/backend/internal/adapters/session"
	"github.com/activmedica/backend/internal/adapters/storage"
	"github.com/activmedica/backend/internal/api/handlers"
	"github.com/activmedica/backend/internal/api/routes"
	"github.com/activmedica/backend/internal/application/services"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/internal/infrastructure/clients/gemini"
	"github.com/activmedica/backend/internal/infrastructure/clients/huggingface"
	"github.com/activmedica/backend/internal/infrastructure/clients/identity"
	"github.com/activmedica/backend/internal/infrastructure/clients/minio"
	"github.com/activmedica/backend/internal/infrastructure/clients/mongodb"
	"github.com/activmedica/backend/internal/infrastructure/clients/postgres"
	"github.com/activmedica/backend/internal/infrastructure/clients/redis"
	"github.com/activmedica/backend/internal/infrastructure/observability"
	"github.com/activmedica/backend/pkg/config"
	"github.com/activmedica/backend/pkg/retry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize the record store backend
	var pgClient *postgres.Client
	var mongoClient *mongodb.Client
	switch cfg.Records.Backend {
	case records.BackendMongo:
		mongoClient, err = mongodb.NewClient(ctx, &cfg.Mongo)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB client: %v", err)
		}
		defer mongoClient.Close(context.Background())
		log.Println("MongoDB client initialized successfully")
	default:
		pgClient, err = postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
		}
		defer pgClient.Close()
		log.Println("PostgreSQL client initialized successfully")
	}

	recordStore, err := records.NewRecordStore(cfg.Records.Backend, pgClient, mongoClient)
	if err != nil {
		log.Fatalf("Failed to initialize record store: %v", err)
	}

	// Initialize Redis client
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		// The service degrades to local rate limiting and an in-process
		// token store, so tokens do not survive restarts.
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Println("Redis client initialized successfully")
	}

	// Initialize object storage
	minioClient, err := minio.NewClient(ctx, &cfg.Minio)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}
	blobStore := storage.NewMinioAdapter(minioClient, cfg.Minio.URLExpiry)
	log.Println("MinIO client initialized successfully")

	// Initialize model clients
	captioner, err := huggingface.NewClient(&cfg.HuggingFace)
	if err != nil {
		log.Fatalf("Failed to initialize captioning client: %v", err)
	}

	chatModel, err := gemini.NewClient(&cfg.Gemini)
	if err != nil {
		log.Fatalf("Failed to initialize chat model client: %v", err)
	}

	authenticator, err := identity.NewClient(&cfg.Identity)
	if err != nil {
		log.Fatalf("Failed to initialize identity client: %v", err)
	}

	// Initialize adapters and services
	sessions := session.NewMemoryStore()
	renderer := rendering.NewHTMLPDFRenderer(cfg.Renderer.TemplateDir)
	extractor := extraction.NewPDFExtractor()

	convertOpts := providers.ConvertOptions{
		AllowLocalFileAccess: cfg.Renderer.LocalFileAccess,
		AllowScripts:         cfg.Renderer.AllowScripts,
	}

	captionService := services.NewCaptionService(captioner)
	composer := services.NewReportComposer(renderer, cfg.Renderer.Template, convertOpts)
	archiver := services.NewReportArchiver(blobStore, recordStore, retry.UploadDefaults())
	orchestrator := services.NewAnalysisOrchestrator(
		sessions,
		captionService,
		composer,
		archiver,
		extractor,
		chatModel,
		metrics,
	)
	authService := services.NewAuthService(authenticator, sessions, cacheProvider)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, orchestrator)
	reportHandler := handlers.NewReportHandler(orchestrator, recordStore)
	chatHandler := handlers.NewChatHandler(orchestrator, cacheProvider, cfg.RateLimit.ChatRequests, cfg.RateLimit.ChatWindow)

	// Initialize router
	router := routes.NewRouter(
		authHandler,
		reportHandler,
		chatHandler,
		authService,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
		// Report generation renders and converts a PDF inline, so the write
		// timeout is generous.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Server stopped")
}
