package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	RequestTimeout time.Duration
	CORSOrigins    []string

	Mongo MongoConfig
	Auth  AuthConfig
	Redis RedisConfig
	Kafka KafkaConfig
}

// MongoConfig selects the document and user backends. An empty URI keeps
// everything in memory.
type MongoConfig struct {
	URI               string
	Database          string
	PolicyCollection  string
	HistoryCollection string
	DeletedCollection string
	UserCollection    string
	ConnectTimeout    time.Duration
}

// AuthConfig drives the bearer token guard on the listing endpoint.
type AuthConfig struct {
	JWKSURL   string
	Algorithm string
	Timeout   time.Duration
}

// RedisConfig configures the distributed lease. An empty URL falls back to
// in-process leases.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LeaseTTL     time.Duration
}

// KafkaConfig enables lifecycle event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	Partitions int32
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:           getEnv("MIDDLEOFFICE_ADDR", ":8000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:    getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Mongo: MongoConfig{
			URI:               os.Getenv("MONGO_URI"),
			Database:          getEnv("MONGO_DATABASE", "middleoffice"),
			PolicyCollection:  getEnv("MONGO_POLICY_COLLECTION", "Policy"),
			HistoryCollection: getEnv("MONGO_HISTORY_COLLECTION", "Histo"),
			DeletedCollection: getEnv("MONGO_DELETED_COLLECTION", "Deleted"),
			UserCollection:    getEnv("MONGO_USER_COLLECTION", "User"),
			ConnectTimeout:    getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWKSURL:   os.Getenv("JWKS_URL"),
			Algorithm: getEnv("JWT_ALGORITHM", "RS256"),
			Timeout:   getDuration("JWKS_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LeaseTTL:     getDuration("LEASE_TTL", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    getList("KAFKA_BROKERS", nil),
			Topic:      getEnv("KAFKA_TOPIC", "middleoffice.policy.events"),
			Partitions: int32(getInt("KAFKA_PARTITIONS", 3)),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getDuration accepts Go duration strings ("5s") or bare seconds ("5").
func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// getList splits a comma separated value, dropping blanks and duplicates.
func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; !ok {
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
