package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config carries the full TRENCH_* environment namespace with production
// defaults.
type Config struct {
	BotToken         string
	Port             string
	Env              string
	Debug            bool
	DefaultPair      string
	MaxOrdersPerUser int
	RateLimitPerMin  int
	MaxSlippageBps   int64
	SweepInterval    time.Duration
	DatabasePath     string
	JWTSecret        string
	TreasuryAddress  string
	TrenchersNFT     string
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := Config{
		BotToken:         getEnv("TRENCH_BOT_TOKEN", ""),
		Port:             getEnv("PORT", "8947"),
		Env:              getEnv("ENV", "development"),
		Debug:            getEnv("DEBUG", "") == "true",
		DefaultPair:      getEnv("TRENCH_DEFAULT_PAIR", "TRCH/ETH"),
		MaxOrdersPerUser: getEnvInt("TRENCH_MAX_ORDERS_PER_USER", 50),
		RateLimitPerMin:  getEnvInt("TRENCH_RATE_LIMIT_PER_MIN", 20),
		MaxSlippageBps:   int64(getEnvInt("TRENCH_MAX_SLIPPAGE_BPS", 500)),
		SweepInterval:    getEnvDuration("TRENCH_SWEEP_INTERVAL", 5*time.Second),
		DatabasePath:     getEnv("TRENCH_DB_PATH", "trenchbot.db"),
		JWTSecret:        getEnv("TRENCH_JWT_SECRET", "trench-secret-key"),
		TreasuryAddress:  getEnv("TRENCH_TREASURY_ADDRESS", ""),
		TrenchersNFT:     getEnv("TRENCHERS_NFT_ADDRESS", ""),
	}

	// Addresses are opaque carry-through values; only surface syntax is
	// checked, and a bad one is worth a warning, not a refusal to start.
	for _, addr := range []string{cfg.TreasuryAddress, cfg.TrenchersNFT} {
		if addr != "" && !ValidAddress(addr) {
			log.Warn().Str("address", addr).Msg("configured address has invalid syntax")
		}
	}

	return cfg
}

// ValidAddress checks surface syntax only: 0x prefix followed by hex digits.
func ValidAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") || len(addr) < 3 {
		return false
	}
	for _, r := range addr[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration in environment, using default")
		return fallback
	}
	return d
}
