package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"buy-together-service/internal/clients"
	"buy-together-service/internal/config"
	"buy-together-service/internal/events"
	"buy-together-service/internal/handlers"
	"buy-together-service/internal/middleware"
	"buy-together-service/internal/repository"
	"buy-together-service/internal/services"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// catalogSource is a candidate fetcher whose cached data can be invalidated.
type catalogSource interface {
	services.CandidateFetcher
	events.CacheInvalidator
}

// @title Buy Together API
// @version 1.0.0
// @description Storefront buy-together bundles: cross-sell candidates, page group selections and discounted bundle totals
// @termsOfService http://swagger.io/terms/

// @contact.name Buy Together API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8095
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	// Set Redis password from GCP Secret Manager
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection; groups fall back to process memory without it
	var groupRepo repository.GroupRepositoryInterface
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (page groups kept in memory)", err)
		groupRepo = repository.NewMemoryGroupRepository()
		redisClient = nil
	} else {
		log.Println("✓ Redis connected successfully")
		groupRepo = repository.NewRedisGroupRepository(redisClient, cfg.GroupTTL)
		handlers.SetRedis(redisClient)
	}
	cancel()

	// Initialize catalog source
	var catalog catalogSource
	if cfg.CatalogSource == config.CatalogSourceDatabase {
		var db *gorm.DB
		db, err = config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		handlers.SetDB(db)
		catalog = repository.NewCatalogRepository(db, redisClient)
		log.Println("✓ Catalog repository initialized (database)")
	} else {
		catalog = clients.NewCatalogClient(clients.CatalogClientConfig{
			BaseURL:  cfg.CatalogServiceURL,
			AppKey:   cfg.CatalogAppKey,
			AppToken: cfg.CatalogAppToken,
			CacheTTL: cfg.CatalogCacheTTL,
		})
		log.Printf("✓ Catalog client initialized (%s)", cfg.CatalogServiceURL)
	}

	bundleService := services.NewBundleService(catalog, groupRepo, services.BundleServiceConfig{
		Defaults:     cfg.Bundle,
		MaxDiscount:  cfg.MaxDiscountPercentage,
		FetchTimeout: cfg.CandidateFetchTimeout,
	}, logger)

	// Initialize events only if NATS_URL is set
	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = events.Connect(cfg.NATSURL, "buy-together-service")
		if err != nil {
			log.Printf("WARNING: Failed to connect to NATS: %v (continuing without events)", err)
		} else {
			js, err := jetstream.New(nc)
			if err != nil {
				log.Printf("WARNING: Failed to create JetStream context: %v (continuing without events)", err)
			} else {
				bundleService.SetEventPublisher(events.NewPublisher(js, logger))
				log.Println("✓ Events publisher initialized (NATS connected)")

				subscriber := events.NewCatalogEventSubscriber(js, bundleService, logger, catalog)
				if err := subscriber.Start(subscriberCtx); err != nil {
					log.Printf("WARNING: Failed to start catalog event subscriber: %v", err)
				} else {
					log.Println("✓ Catalog event subscriber started")
				}
			}
		}
	} else {
		log.Println("NATS_URL not set, skipping event initialization")
	}

	bundleHandler := handlers.NewBundleHandler(bundleService)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.Environment == "production" {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("buy-together-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("buy-together-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("tesseract", "buy_together_service")
	log.Println("✓ Prometheus metrics initialized")

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add observability middleware (metrics + tracing)
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("buy-together-service"))
	router.Use(gosharedmw.CompressionMiddleware())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)
	router.GET("/metrics", gosharedmw.Handler())

	// Public storefront endpoints (tenant context only)
	storefront := router.Group("/api/v1/storefront")
	storefront.Use(middleware.TenantMiddleware())
	bundleHandler.RegisterRoutes(storefront)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Buy together service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down buy-together-service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopSubscriber()
	bundleService.Wait()
	if nc != nil {
		nc.Drain()
	}

	// Shutdown tracer provider
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	log.Println("Buy together service stopped")
}
