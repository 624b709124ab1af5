package config

import (
	"crypto/rand"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration

	// Redis configuration
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// internal secret used for scheduled or manual re-triggers
	InternalSecret string

	FrontendAddress string

	// development seed
	SeedAdminEmail    string
	SeedAdminPassword string

	// Logging
	LogLevel string
	LogFile  string

	// Mail delivery
	MailDriver   string
	MailFrom     string
	MailFromName string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailAPIURL   string
	MailAPIKey   string

	// Notification dispatch
	NotifyConcurrency int
	NotifySendTimeout time.Duration
	NotifyClaimTTL    time.Duration
	WorkerPoolSize    int

	// Object storage
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	MaxUploadSize int64
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateRandomSecret(32)
		log.Println("Warning: JWT_SECRET not set, generated a random secret")
	}

	AppConfig = Config{
		ServerPort:        getEnv("PORT", "8080"),
		Environment:       getEnv("ENV", "development"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "distributor_portal"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		RedisAddress:      getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		JWTSecret:         jwtSecret,
		AccessTokenTTL:    getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		InternalSecret:    getEnv("INTERNAL_SECRET", "portal-internal-secret"),
		FrontendAddress:   getEnv("FRONTEND_ADDRESS", "https://portal.example.com"),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@portal.local"),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		MailDriver:        getEnv("MAIL_DRIVER", "log"),
		MailFrom:          getEnv("MAIL_FROM", "no-reply@portal.example.com"),
		MailFromName:      getEnv("MAIL_FROM_NAME", "Distributor Portal"),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		MailAPIURL:        getEnv("MAIL_API_URL", ""),
		MailAPIKey:        getEnv("MAIL_API_KEY", ""),
		NotifyConcurrency: getEnvInt("NOTIFY_CONCURRENCY", 4),
		NotifySendTimeout: getEnvDuration("NOTIFY_SEND_TIMEOUT", 10*time.Second),
		NotifyClaimTTL:    getEnvDuration("NOTIFY_CLAIM_TTL", 2*time.Minute),
		WorkerPoolSize:    getEnvInt("WORKER_POOL_SIZE", 2),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", "device-documents"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:          getEnvBool("S3_USE_SSL", false),
		MaxUploadSize:     int64(getEnvInt("MAX_UPLOAD_SIZE", 50<<20)),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// generateRandomSecret generates a random secret of the specified length
func generateRandomSecret(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	secret := make([]byte, length)
	for i := range secret {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % int64(len(charset)))
		}
		secret[i] = charset[n.Int64()]
	}
	return string(secret)
}
