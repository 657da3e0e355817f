package config

import (
	"os"
	"strings"
	"time"

	"intake/pkg/phone"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string
	StaffContact  string
	Phone         phone.Plan
	SubmissionTTL time.Duration
}

// RedisConfig holds connection settings for the idempotency store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the event publisher settings. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("INTAKE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("INTAKE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	plan := phone.DefaultPlan()
	if cc := os.Getenv("INTAKE_PHONE_COUNTRY_CODE"); cc != "" {
		plan.CountryCode = cc
	}
	if trunk := os.Getenv("INTAKE_PHONE_TRUNK_PREFIX"); trunk != "" {
		plan.TrunkPrefix = trunk
	}

	var brokers []string
	if raw := os.Getenv("INTAKE_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("INTAKE_KAFKA_TOPIC")
	if topic == "" {
		topic = "intake.registrations"
	}

	submissionTTL := 10 * time.Minute
	if raw := os.Getenv("INTAKE_SUBMISSION_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			submissionTTL = d
		}
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("INTAKE_DATABASE_URL"),
		Redis:         redisFromEnv(),
		Kafka:         KafkaConfig{Brokers: brokers, Topic: topic},
		JWTSigningKey: jwtSigningKey,
		StaffContact:  os.Getenv("INTAKE_STAFF_CONTACT"),
		Phone:         plan,
		SubmissionTTL: submissionTTL,
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("INTAKE_REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
