package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           string
	DatabaseURL    string // empty disables the match archive
	RedisURL       string // empty disables player stats
	JWTSecret      string
	AllowedOrigins []string

	CodeforcesURL     string
	CodeforcesTimeout time.Duration

	RegistryShards int
	TickInterval   time.Duration
	FinishedTTL    time.Duration
	StaleTTL       time.Duration

	LogLevel string
	LogFile  string
	Dev      bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present; real
// environment variables win over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Ignoring unreadable .env file")
	}
	return &Config{
		Port:           envOrDefault("PORT", "8009"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      envOrDefault("JWT_SECRET", "dev-secret-change-me"),
		AllowedOrigins: splitList(envOrDefault("ALLOWED_ORIGINS", "*")),

		CodeforcesURL:     envOrDefault("CF_API_URL", "https://codeforces.com/api"),
		CodeforcesTimeout: envDuration("CF_TIMEOUT", 12*time.Second),

		RegistryShards: envInt("REGISTRY_SHARDS", 32),
		TickInterval:   envDuration("TICK_INTERVAL", time.Second),
		FinishedTTL:    envDuration("FINISHED_TTL", 5*time.Minute),
		StaleTTL:       envDuration("STALE_TTL", 30*time.Minute),

		LogLevel: envOrDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
		Dev:      envBool("DEV") || envBool("DEV_MODE") || envBool("DEVELOPMENT"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
