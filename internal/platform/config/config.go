package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	ChangeTopic     string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
	CacheTTL        time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("EVENTTRAIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("KAFKA_CHANGE_TOPIC")
	if topic == "" {
		topic = "eventtrail.changes"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		ChangeTopic:     topic,
		JWTSigningKey:   jwtSigningKey,
		ShutdownTimeout: 10 * time.Second,
		CacheTTL:        30 * time.Second,
	}
}
