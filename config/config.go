package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Transport kinds accepted by SYNCBEAT_TRANSPORT.
const (
	TransportMemory = "memory"
	TransportRedis  = "redis"
	TransportRelay  = "relay"
	TransportP2P    = "p2p"
)

// Config stores the application configuration.
type Config struct {
	Transport string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Relay
	RelayAddr string // listen address for `syncbeat relay`
	RelayURL  string // base URL clients dial, e.g. ws://127.0.0.1:8765

	P2PPort int

	// 同步时序
	HostBroadcastInterval time.Duration
	DriftCheckInterval    time.Duration
	JoinDelay             time.Duration
	DriftThreshold        float64

	// 日志
	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("2s", "500ms").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		Transport:             getEnv("SYNCBEAT_TRANSPORT", TransportMemory),
		RedisHost:             getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:             getEnv("REDIS_PORT", "6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:               getEnvInt("REDIS_DB", 0),
		RelayAddr:             getEnv("RELAY_ADDR", ":8765"),
		RelayURL:              getEnv("RELAY_URL", "ws://127.0.0.1:8765"),
		P2PPort:               getEnvInt("P2P_PORT", 0),
		HostBroadcastInterval: getEnvDuration("HOST_BROADCAST_INTERVAL", 2*time.Second),
		DriftCheckInterval:    getEnvDuration("DRIFT_CHECK_INTERVAL", time.Second),
		JoinDelay:             getEnvDuration("JOIN_DELAY", 500*time.Millisecond),
		DriftThreshold:        getEnvFloat("DRIFT_THRESHOLD", 2.0),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPath:               getEnv("LOG_PATH", ""),
		LogMaxSize:            getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:         getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:             getEnvInt("LOG_MAX_AGE", 28),
	}
}

// RedisAddr returns host:port.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
