package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/game-station-rental/internal/model"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Unlike the persisted state, configuration is
// read once at startup; every value has a working default so the cashier
// can start with no environment at all.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DevicesFile   string        // optional JSON file overriding the default device inventory
	TickPeriod    time.Duration // expiry clock period
	EventsEnabled bool          // publish/consume session events over RabbitMQ
	Tiers         model.Tiers   // default duration tiers, overridden by persisted settings
}

// Load reads configuration from the environment.  A .env file in the
// working directory is loaded first when present; a missing file is not an
// error.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env")
	}
	tiers := model.DefaultTiers()
	tiers.First.Minutes = envInt("TIER_FIRST_MINUTES", tiers.First.Minutes)
	tiers.First.Price = envInt("TIER_FIRST_PRICE", tiers.First.Price)
	tiers.Second.Minutes = envInt("TIER_SECOND_MINUTES", tiers.Second.Minutes)
	tiers.Second.Price = envInt("TIER_SECOND_PRICE", tiers.Second.Price)
	return Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8080"),
		DevicesFile:   os.Getenv("DEVICES_FILE"),
		TickPeriod:    envDur("EXPIRY_TICK_PERIOD", time.Second),
		EventsEnabled: envBool("EVENTS_ENABLED", false),
		Tiers:         tiers,
	}
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
