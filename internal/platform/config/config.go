package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	StorageDriver string

	JWTSecret string
	JWTIssuer string

	RateLimit          string
	ActorRateLimit     string
	CORSAllowedOrigins []string
	PosthogAPIKey      string

	KafkaBrokers            []string
	KafkaEventsTopic        string
	KafkaNotificationsTopic string
	RedisAddr               string
	SchedulerPollInterval   time.Duration

	DefaultCurrency        string
	PlatformAccountUserID  string
	PrivatePoolWindow      time.Duration
	EscrowAutoReleaseAfter time.Duration
	RiderCancelPenalty     decimal.Decimal
	DisputePenalty         decimal.Decimal
	DeliveryOTPTTL         time.Duration
	WorkflowSeedPath       string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "fulfillment-coordinator")
	viper.SetDefault("RATE_LIMIT", "200-M")
	viper.SetDefault("ACTOR_RATE_LIMIT", "60-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_EVENTS_TOPIC", "fulfillment.events")
	viper.SetDefault("KAFKA_NOTIFICATIONS_TOPIC", "fulfillment.notifications")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SCHEDULER_POLL_INTERVAL", "1s")
	viper.SetDefault("DEFAULT_CURRENCY", "INR")
	viper.SetDefault("PLATFORM_ACCOUNT_USER_ID", "")
	viper.SetDefault("PRIVATE_POOL_WINDOW", "10m")
	viper.SetDefault("ESCROW_AUTO_RELEASE_HOURS", 48)
	viper.SetDefault("RIDER_CANCEL_PENALTY", "5.00")
	viper.SetDefault("DISPUTE_PENALTY", "10.00")
	viper.SetDefault("DELIVERY_OTP_TTL", "2h")
	viper.SetDefault("WORKFLOW_SEED_PATH", "config/workflows.yaml")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.StorageDriver = strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		log.Printf("Warning: Invalid value for STORAGE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StorageDriver, StoragePostgres)
		cfg.StorageDriver = StoragePostgres
	}
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.ActorRateLimit = viper.GetString("ACTOR_RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")

	cfg.KafkaBrokers = splitList(viper.GetString("KAFKA_BROKERS"))
	cfg.KafkaEventsTopic = viper.GetString("KAFKA_EVENTS_TOPIC")
	cfg.KafkaNotificationsTopic = viper.GetString("KAFKA_NOTIFICATIONS_TOPIC")
	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.SchedulerPollInterval = durationOr("SCHEDULER_POLL_INTERVAL", time.Second)

	cfg.DefaultCurrency = viper.GetString("DEFAULT_CURRENCY")
	cfg.PlatformAccountUserID = viper.GetString("PLATFORM_ACCOUNT_USER_ID")
	if cfg.PlatformAccountUserID == "" {
		log.Println("Warning: PLATFORM_ACCOUNT_USER_ID not set. Platform fees will not be collected on release.")
	}
	cfg.PrivatePoolWindow = durationOr("PRIVATE_POOL_WINDOW", 10*time.Minute)

	hours := viper.GetInt("ESCROW_AUTO_RELEASE_HOURS")
	if hours <= 0 {
		log.Printf("Warning: Invalid value for ESCROW_AUTO_RELEASE_HOURS (%d). Defaulting to 48.\n", hours)
		hours = 48
	}
	cfg.EscrowAutoReleaseAfter = time.Duration(hours) * time.Hour

	cfg.RiderCancelPenalty = decimalOr("RIDER_CANCEL_PENALTY", decimal.NewFromInt(5))
	cfg.DisputePenalty = decimalOr("DISPUTE_PENALTY", decimal.NewFromInt(10))
	cfg.DeliveryOTPTTL = durationOr("DELIVERY_OTP_TTL", 2*time.Hour)
	cfg.WorkflowSeedPath = viper.GetString("WORKFLOW_SEED_PATH")

	return cfg, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}

func decimalOr(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := viper.GetString(key)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.StringFixed(2))
		return fallback
	}
	return d.Round(2)
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
