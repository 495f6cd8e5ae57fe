// Package config loads runtime settings from the environment. A .env file
// in the working directory is read first when present; real environment
// variables win over it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the settings the server needs at startup.
type Config struct {
	Env            string // dev, test, prod
	Port           string
	LogLevel       string
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	RabbitURL      string // empty disables lifecycle event publishing
	CORSOrigins    []string
	Library        LibraryConfig
}

// LibraryConfig carries the lending policy constants.
type LibraryConfig struct {
	LoanPeriod         time.Duration
	FineDailyRateCents int64
}

// Load reads the environment. Missing required variables are fatal.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		CORSOrigins:    splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),
		Library:        LoadLibraryConfig(),
	}
}

// LoadLibraryConfig reads LOAN_PERIOD_DAYS and FINE_DAILY_RATE_CENTS,
// defaulting to 14 days and 100 cents. Non-positive values fall back to
// the defaults.
func LoadLibraryConfig() LibraryConfig {
	days := envInt("LOAN_PERIOD_DAYS", 14)
	if days < 1 {
		days = 14
	}
	rate := envInt("FINE_DAILY_RATE_CENTS", 100)
	if rate < 1 {
		rate = 100
	}
	return LibraryConfig{
		LoanPeriod:         time.Duration(days) * 24 * time.Hour,
		FineDailyRateCents: int64(rate),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", s).Msg("invalid int env var")
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
