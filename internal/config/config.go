package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ConflictPolicyVersion = "version"
	ConflictPolicyLWW     = "lww"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	JWTSecret       string
	JWTAccessExpiry time.Duration

	Log       LogConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

type LogConfig struct {
	Level  string
	Format string
	// File enables rotated file output in addition to stderr.
	File string
}

type SyncConfig struct {
	ConflictPolicy     string
	MaxChanges         int
	TimeoutBase        time.Duration
	TimeoutPerChange   time.Duration
	TombstoneRetention time.Duration
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
	ServiceName  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	policy := getEnv("SYNC_CONFLICT_POLICY", ConflictPolicyVersion)
	if policy != ConflictPolicyVersion && policy != ConflictPolicyLWW {
		return nil, fmt.Errorf("invalid SYNC_CONFLICT_POLICY %q: must be %q or %q", policy, ConflictPolicyVersion, ConflictPolicyLWW)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:       getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry: getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),

		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},

		Sync: SyncConfig{
			ConflictPolicy:     policy,
			MaxChanges:         getInt("SYNC_MAX_CHANGES", 1000),
			TimeoutBase:        getDuration("SYNC_TIMEOUT_BASE", 10*time.Second),
			TimeoutPerChange:   getDuration("SYNC_TIMEOUT_PER_CHANGE", 50*time.Millisecond),
			TombstoneRetention: getDuration("TOMBSTONE_RETENTION", 90*24*time.Hour),
		},

		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnv("OTEL_INSECURE", "false") == "true",
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "linkshelf-api"),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
