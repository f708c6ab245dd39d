package config

import (
	"os"
	"strconv"
	"time"

	"satnam/pkg/platform/strlist"
)

// Config is everything the onboarding tool reads from its environment.
type Config struct {
	Backend         Backend
	Onboarding      Onboarding
	Store           Store
	Redis           RedisConfig
	Audit           Audit
	Ops             Ops
	Log             Log
	NFC             NFC
	CoordinatorID   string
	CoordinatorNsec string
}

// Backend configures the identity backend client.
type Backend struct {
	BaseURL       string
	Timeout       time.Duration
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration
}

// Onboarding holds flow parameters.
type Onboarding struct {
	PlatformDomain         string
	SecretDisplayWindow    time.Duration
	AttestationMaxAttempts int
	Relays                 []string
}

// Store selects and configures the session store.
type Store struct {
	Driver      string
	PostgresDSN string
	KeyPrefix   string
}

// RedisConfig configures the shared Redis connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit configures where audit events go. No brokers keeps them in memory.
type Audit struct {
	KafkaBrokers []string
	KafkaTopic   string
	QueueSize    int
}

// Ops configures the local operations API.
type Ops struct {
	Addr string
	// AllowedOrigins enables CORS for a browser dashboard. Empty disables it.
	AllowedOrigins []string
}

// Log configures structured logging.
type Log struct {
	Level  string
	Format string
}

// NFC configures the card reader.
type NFC struct {
	Device      string
	ScanTimeout time.Duration
}

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// FromEnv builds a Config from SATNAM_* environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Backend: Backend{
			BaseURL:       getString("SATNAM_BACKEND_URL", "http://localhost:8080"),
			Timeout:       getDuration("SATNAM_BACKEND_TIMEOUT", 15*time.Second),
			JWTSigningKey: getString("SATNAM_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     getString("SATNAM_JWT_ISSUER", "satnam-onboard"),
			JWTAudience:   getString("SATNAM_JWT_AUDIENCE", "satnam-api"),
			TokenTTL:      getDuration("SATNAM_JWT_TTL", 5*time.Minute),
		},
		Onboarding: Onboarding{
			PlatformDomain:         getString("SATNAM_PLATFORM_DOMAIN", "satnam.pub"),
			SecretDisplayWindow:    getDuration("SATNAM_SECRET_DISPLAY_WINDOW", 300*time.Second),
			AttestationMaxAttempts: getInt("SATNAM_ATTESTATION_MAX_ATTEMPTS", 3),
			Relays:                 getList("SATNAM_RELAYS", "wss://relay.satnam.pub,wss://relay.damus.io,wss://nos.lol"),
		},
		Store: Store{
			Driver:      getString("SATNAM_STORE", StoreMemory),
			PostgresDSN: os.Getenv("SATNAM_POSTGRES_DSN"),
			KeyPrefix:   getString("SATNAM_STORE_KEY_PREFIX", "satnam:onboarding:"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("SATNAM_REDIS_URL"),
			PoolSize:     getInt("SATNAM_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("SATNAM_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("SATNAM_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("SATNAM_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("SATNAM_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: Audit{
			KafkaBrokers: getList("SATNAM_AUDIT_KAFKA_BROKERS", ""),
			KafkaTopic:   getString("SATNAM_AUDIT_KAFKA_TOPIC", "satnam.onboarding.audit"),
			QueueSize:    getInt("SATNAM_AUDIT_QUEUE_SIZE", 256),
		},
		Ops: Ops{
			Addr:           getString("SATNAM_OPS_ADDR", "127.0.0.1:9090"),
			AllowedOrigins: getList("SATNAM_OPS_ALLOWED_ORIGINS", ""),
		},
		Log: Log{
			Level:  getString("SATNAM_LOG_LEVEL", "info"),
			Format: getString("SATNAM_LOG_FORMAT", "text"),
		},
		NFC: NFC{
			Device:      os.Getenv("SATNAM_NFC_DEVICE"),
			ScanTimeout: getDuration("SATNAM_NFC_SCAN_TIMEOUT", 15*time.Second),
		},
		CoordinatorID:   os.Getenv("SATNAM_COORDINATOR_ID"),
		CoordinatorNsec: os.Getenv("SATNAM_COORDINATOR_NSEC"),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getList(key, fallback string) []string {
	return strlist.Split(getString(key, fallback), ",")
}
