package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	BaseURL    string

	// TBI bank gateway
	TBIBaseURL         string
	TBISubscriptionKey string
	TBIUsername        string
	TBIPassword        string

	// S3-compatible object storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	// Redis (abandonment outbox stream)
	RedisAddr     string
	RedisPassword string

	JWTSecret string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),
		BaseURL:    os.Getenv("BASE_URL"),

		TBIBaseURL:         os.Getenv("TBI_BASE_URL"),
		TBISubscriptionKey: os.Getenv("TBI_SUBSCRIPTION_KEY"),
		TBIUsername:        os.Getenv("TBI_USERNAME"),
		TBIPassword:        os.Getenv("TBI_PASSWORD"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    os.Getenv("S3_REGION"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.TBIBaseURL == "" {
		// UAT environment default
		cfg.TBIBaseURL = "https://tbi-apim.azure-api.net/ftosgr/api/v1"
	}

	return cfg
}
