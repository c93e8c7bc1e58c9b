package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	BookingsPerMin    int    `mapstructure:"BOOKINGS_PER_MIN"`
	PublicBaseURL     string `mapstructure:"PUBLIC_BASE_URL"`

	// Document store.
	DocstoreBackend string `mapstructure:"DOCSTORE_BACKEND"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DatabaseName    string `mapstructure:"DATABASE_NAME"`

	// Firebase (firestore backend and push notifications).
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	PushNotifications       bool   `mapstructure:"PUSH_NOTIFICATIONS"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	RateLimitBackend string `mapstructure:"RATE_LIMIT_BACKEND"`

	// Retention engine.
	CleanupBatchSize     int    `mapstructure:"CLEANUP_BATCH_SIZE"`
	CleanupMaxIterations int    `mapstructure:"CLEANUP_MAX_ITERATIONS"`
	CleanupLockMaxAgeMs  int64  `mapstructure:"CLEANUP_LOCK_MAX_AGE_MS"`
	ArchiveRetentionDays int    `mapstructure:"ARCHIVE_RETENTION_DAYS"`
	CleanupCron          string `mapstructure:"CLEANUP_CRON"`

	// WhatsApp confirmations.
	DefaultPhoneRegion string `mapstructure:"DEFAULT_PHONE_REGION"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("BOOKINGS_PER_MIN", 10)
	viper.SetDefault("PUBLIC_BASE_URL", "")
	viper.SetDefault("DOCSTORE_BACKEND", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "salonbook")
	viper.SetDefault("FIREBASE_PROJECT_ID", "")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("PUSH_NOTIFICATIONS", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("RATE_LIMIT_BACKEND", "store")
	viper.SetDefault("CLEANUP_BATCH_SIZE", 400)
	viper.SetDefault("CLEANUP_MAX_ITERATIONS", 50)
	viper.SetDefault("CLEANUP_LOCK_MAX_AGE_MS", int64(10*time.Minute/time.Millisecond))
	viper.SetDefault("ARCHIVE_RETENTION_DAYS", 365)
	viper.SetDefault("CLEANUP_CRON", "@hourly")
	viper.SetDefault("DEFAULT_PHONE_REGION", "IL")
	viper.SetDefault("TWILIO_AUTH_TOKEN", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// CleanupLockMaxAge returns the lease staleness threshold as a duration.
func (c Config) CleanupLockMaxAge() time.Duration {
	return time.Duration(c.CleanupLockMaxAgeMs) * time.Millisecond
}
