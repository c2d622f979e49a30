package config

import (
	"os"
	"strconv"
)

// Config holds sidecar configuration.
type Config struct {
	BindAddr         string
	NodeStreamURL    string
	ProtocolVersion  string
	StoreDriver      string
	StoreDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisChannel     string
	RedisDB          int
	RateLimitRPS     float64
	RateLimitBurst   int
	ReplayLimit      int
	SubscriberBuffer int
	LogLevel         string
	OTLPEndpoint     string
}

// Load loads configuration from environment variables.
func Load() *Config {
	bindAddr := os.Getenv("SIDECAR_BIND_ADDR")
	if bindAddr == "" {
		bindAddr = ":19999"
	}

	nodeURL := os.Getenv("SIDECAR_NODE_STREAM_URL")
	if nodeURL == "" {
		// Default to a node on the local host
		nodeURL = "http://127.0.0.1:9999/events/main"
	}

	version := os.Getenv("SIDECAR_PROTOCOL_VERSION")
	if version == "" {
		version = "1.0.0"
	}

	driver := os.Getenv("SIDECAR_STORE_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dsn := os.Getenv("SIDECAR_STORE_DSN")
	if dsn == "" {
		dsn = "sidecar_events.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	redisChannel := os.Getenv("SIDECAR_REDIS_CHANNEL")
	if redisChannel == "" {
		redisChannel = "sidecar:events"
	}

	return &Config{
		BindAddr:         bindAddr,
		NodeStreamURL:    nodeURL,
		ProtocolVersion:  version,
		StoreDriver:      driver,
		StoreDSN:         dsn,
		RedisAddr:        os.Getenv("SIDECAR_REDIS_ADDR"),
		RedisPassword:    os.Getenv("SIDECAR_REDIS_PASSWORD"),
		RedisChannel:     redisChannel,
		RedisDB:          envInt("SIDECAR_REDIS_DB", 0),
		RateLimitRPS:     envFloat("SIDECAR_RATE_LIMIT_RPS", 20),
		RateLimitBurst:   envInt("SIDECAR_RATE_LIMIT_BURST", 40),
		ReplayLimit:      envInt("SIDECAR_REPLAY_LIMIT", 1000),
		SubscriberBuffer: envInt("SIDECAR_SUBSCRIBER_BUFFER", 256),
		LogLevel:         logLevel,
		OTLPEndpoint:     os.Getenv("OTLP_ENDPOINT"),
	}
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}
