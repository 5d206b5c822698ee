package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=warehouse port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	StoreDriver string // postgres | memory
	JWTSecret   string
	CORSOrigins string
	LogLevel    string

	RedisAddress     string
	NumberingBackend string // redis | database

	KafkaBrokers []string
	AuditTopic   string

	OTelEndpoint   string
	OTelAuthHeader string

	DefaultCountryCode string

	DBMaxOpenConns int
	DBMaxIdleConns int
}

func Load() *Config {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", defaultDSN),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSOrigins:        getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		NumberingBackend:   strings.ToLower(getEnv("NUMBERING_BACKEND", "database")),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		AuditTopic:         getEnv("AUDIT_TOPIC", "warehouse.audit"),
		OTelEndpoint:       getEnv("OTEL_ENDPOINT", ""),
		OTelAuthHeader:     getEnv("OTEL_AUTH_HEADER", ""),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "US"),
		DBMaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 10),
	}
	return cfg
}

// Validate is only needed by the API server; migrate and reconcile run without a JWT secret.
func (c *Config) Validate() {
	if c.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		log.Fatalf("[FATAL] unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value")
	}
	if c.NumberingBackend == "redis" && c.RedisAddress == "" {
		log.Println("[WARN] NUMBERING_BACKEND=redis without REDIS_ADDRESS, falling back to database counters")
		c.NumberingBackend = "database"
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[WARN] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
