package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"buy-together-service/internal/models"
)

const (
	CatalogSourceHTTP     = "http"
	CatalogSourceDatabase = "database"

	// MaxDiscountPercentage is the highest bundle discount a storefront may configure.
	MaxDiscountPercentage = 20.0
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// NATS
	NATSURL string

	// Server
	Port        string
	Environment string

	// Catalog
	CatalogSource         string
	CatalogServiceURL     string
	CatalogAppKey         string
	CatalogAppToken       string
	CatalogCacheTTL       time.Duration
	CandidateFetchTimeout time.Duration

	// Groups
	GroupTTL time.Duration

	// Bundle defaults
	MaxDiscountPercentage float64
	Bundle                models.BundleConfig
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxDiscount := models.ClampDiscount(getEnvFloat("BUNDLE_MAX_DISCOUNT_PERCENTAGE", MaxDiscountPercentage), 100)

	preferred := parsePreference(getEnv("BUNDLE_PREFERRED_SKU", string(models.PreferenceFirstAvailable)))
	source := parseCatalogSource(getEnv("CATALOG_SOURCE", CatalogSourceHTTP))

	return &Config{
		// Database - fetch password from GCP Secret Manager if enabled
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://redis.redis-marketplace.svc.cluster.local:6379/0"),

		// NATS is optional; events are disabled when unset
		NATSURL: os.Getenv("NATS_URL"),

		// Server
		Port:        getEnv("PORT", "8095"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Catalog
		CatalogSource:         source,
		CatalogServiceURL:     getEnv("CATALOG_SERVICE_URL", "http://products-service:8087"),
		CatalogAppKey:         os.Getenv("CATALOG_APP_KEY"),
		CatalogAppToken:       os.Getenv("CATALOG_APP_TOKEN"),
		CatalogCacheTTL:       getEnvDuration("CATALOG_CACHE_TTL", time.Minute),
		CandidateFetchTimeout: getEnvDuration("CANDIDATE_FETCH_TIMEOUT", 10*time.Second),

		GroupTTL: getEnvDuration("GROUP_TTL", 30*time.Minute),

		MaxDiscountPercentage: maxDiscount,
		Bundle: models.BundleConfig{
			DiscountPercentage: models.ClampDiscount(getEnvFloat("BUNDLE_DISCOUNT_PERCENTAGE", 7), maxDiscount),
			CustomText:         getEnv("BUNDLE_CUSTOM_TEXT", "PIX"),
			ShowCustomText:     getEnvBool("BUNDLE_SHOW_CUSTOM_TEXT", true),
			ShowAllSkus:        getEnvBool("BUNDLE_SHOW_ALL_SKUS", false),
			PreferredSku:       preferred,
			IncludeBaseProduct: getEnvBool("BUNDLE_INCLUDE_BASE_PRODUCT", true),
		},
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.CatalogProduct{},
		&models.CatalogSku{},
		&models.CrossSellRelation{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func parsePreference(value string) models.PreferenceType {
	preferred := models.PreferenceType(strings.ToUpper(strings.TrimSpace(value)))
	if !preferred.IsValid() {
		log.Printf("WARNING: Unknown BUNDLE_PREFERRED_SKU %q, using %s", value, models.PreferenceFirstAvailable)
		return models.PreferenceFirstAvailable
	}
	return preferred
}

func parseCatalogSource(value string) string {
	source := strings.ToLower(strings.TrimSpace(value))
	if source != CatalogSourceHTTP && source != CatalogSourceDatabase {
		log.Printf("WARNING: Unknown CATALOG_SOURCE %q, using %s", value, CatalogSourceHTTP)
		return CatalogSourceHTTP
	}
	return source
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
