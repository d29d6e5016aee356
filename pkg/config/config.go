// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken    string
	DevGuildID  string
	DevUserIDs  []string
	Prefix      string
	MentionHint bool

	// Commands
	CommandCooldown  time.Duration
	PaginatorTimeout time.Duration
	PaginatorMode    string

	// Storage selects the persistence backend: "mongo" or "memory"
	Storage    string
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost        string
	MQTTPort        string
	MQTTUser        string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Web Server
	Port string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
}

// Storage backends
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	cfg = &Config{
		// Discord
		BotToken:    getEnv("BOT_TOKEN", ""),
		DevGuildID:  getEnv("DEV_GUILD_ID", ""),
		DevUserIDs:  getEnvList("DEV_USER_IDS"),
		Prefix:      getEnv("BOT_PREFIX", "!"),
		MentionHint: getEnvBool("MENTION_HINT", true),

		// Commands
		CommandCooldown:  getEnvDuration("COMMAND_COOLDOWN", 3*time.Second),
		PaginatorTimeout: getEnvDuration("PAGINATOR_TIMEOUT", 2*time.Minute),
		PaginatorMode:    strings.ToLower(getEnv("PAGINATOR_MODE", "buttons")),

		// Storage
		Storage:    parseStorage(getEnv("STORAGE", StorageMongo)),
		MongoDBURL: getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		DBName:     getEnv("DB_NAME", "HelperBot"),

		// MQTT
		MQTTHost:        getEnv("MQTT_HOST", "localhost"),
		MQTTPort:        getEnv("MQTT_PORT", "1883"),
		MQTTUser:        getEnv("MQTT_USER", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "helperbot"),

		// Web Server
		Port: getEnv("PORT", "3000"),

		// Environment
		Environment: getEnv("ENVIRONMENT", "dev"),

		// Webhooks
		ErrorWebhook:      getEnv("ERROR_WEBHOOK", ""),
		LogsWebhook:       getEnv("LOGS_WEBHOOK", ""),
		LogsWebServerHook: getEnv("LOGS_WEBSERVER_WEBHOOK", ""),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// getEnvDuration parses a Go duration ("90s", "2m"); invalid values fall back to the default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// parseStorage accepts the known backends case-insensitively, anything else means mongo
func parseStorage(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), StorageMemory) {
		return StorageMemory
	}
	return StorageMongo
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// UsesMemoryStorage reports whether data lives only in process memory
func (c *Config) UsesMemoryStorage() bool {
	return c.Storage == StorageMemory
}

// IsDeveloper reports whether the user ID belongs to a configured developer
func (c *Config) IsDeveloper(userID string) bool {
	for _, id := range c.DevUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
