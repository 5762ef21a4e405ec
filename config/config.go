package config

import (
	"os"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const envFile = "battleship/.env"

type Config struct {
	ListenAddr    string
	DBUrl         string
	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	LogLevel      string

	TurnTimeout    time.Duration
	BotDelay       time.Duration
	ExtraTurnOnHit bool
	MatchTTL       time.Duration
}

// LoadConfig reads the XDG .env (if any), then ./.env, then the process
// environment. Variables already set in the environment win.
func LoadConfig() Config {
	loaded := false
	if path, err := xdg.SearchConfigFile(envFile); err == nil {
		if err := godotenv.Load(path); err == nil {
			loaded = true
		}
	}
	if err := godotenv.Load(); err == nil {
		loaded = true
	}
	if !loaded {
		log.Info("No .env file found. Using environment variables.")
	}

	return Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DBUrl:          os.Getenv("DB_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TurnTimeout:    getDuration("TURN_TIMEOUT", 120*time.Second),
		BotDelay:       getDuration("BOT_DELAY", time.Second),
		ExtraTurnOnHit: getBool("EXTRA_TURN_ON_HIT", false),
		MatchTTL:       getDuration("MATCH_TTL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("invalid bool, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}
