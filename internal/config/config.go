package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the dashboard daemon configuration, loaded once at boot.
type Config struct {
	// Upstream order-management API
	APIBaseURL        string
	APITimeoutSeconds int

	// Local view API
	ListenAddr     string
	AllowedOrigins []string

	// Branding shown by the front-end
	BrandTitle string

	// Refresh cadences (seconds)
	PollInterval    int
	PendingInterval int

	// Alerting
	AlertRepeatSeconds    int
	NotifyCooldownSeconds int
	PlayerCommand         string
	NotifyCommand         string

	MQTT struct {
		Broker string
		Topic  string
		QoS    int
	}

	// Row loading
	OrderMode string // "pending" or "all"
	PageSize  int

	// Slips
	SlipDir string

	// Preferences persistence
	PrefsFile string
	RedisAddr string

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment. A missing
// API_BASE_URL is the one fatal condition: the dashboard cannot do
// anything without its backend.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIBaseURL = strings.TrimSpace(os.Getenv("API_BASE_URL"))
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	cfg.APITimeoutSeconds = getEnvInt("API_TIMEOUT_SECONDS", 30)

	cfg.ListenAddr = getEnv("LISTEN_ADDR", ":8090")
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "*"))
	cfg.BrandTitle = getEnv("BRAND_TITLE", "BHH Meal Ordering")

	cfg.PollInterval = getEnvInt("POLL_INTERVAL_SECONDS", 4)
	cfg.PendingInterval = getEnvInt("PENDING_INTERVAL_SECONDS", 20)

	cfg.AlertRepeatSeconds = getEnvInt("ALERT_REPEAT_SECONDS", 15)
	cfg.NotifyCooldownSeconds = getEnvInt("NOTIFY_COOLDOWN_SECONDS", 60)
	cfg.PlayerCommand = os.Getenv("PLAYER_COMMAND")
	cfg.NotifyCommand = os.Getenv("NOTIFY_COMMAND")

	cfg.MQTT.Broker = os.Getenv("MQTT_BROKER")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "mealboard/pending")
	cfg.MQTT.QoS = getEnvInt("MQTT_QOS", 1)

	cfg.OrderMode = getEnv("ORDER_MODE", "all")
	cfg.PageSize = getEnvInt("PAGE_SIZE", 25)

	cfg.SlipDir = os.Getenv("SLIP_DIR")

	cfg.PrefsFile = getEnv("PREFS_FILE", "mealboard-prefs.json")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
