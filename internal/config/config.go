package config

import (
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken    string   `envconfig:"BOT_TOKEN" required:"true"`
	DBPath      string   `envconfig:"DB_PATH" default:"./data/woolzy.db"`
	AdminIDs    []string `envconfig:"ADMIN_IDS"`                       // user/chat IDs, string-compared
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`        // debug|info|warn|error
	HTTPAddr    string   `envconfig:"HTTP_ADDR" default:":8080"`       // healthz
	MaxInFlight int64    `envconfig:"MAX_INFLIGHT_SENDS" default:"32"` // concurrent timer sends
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IsAdmin reports whether either the user or the chat identity is listed
// as an admin. IDs are compared as strings, matching how they are
// configured.
func (c Config) IsAdmin(userID, chatID int64) bool {
	if len(c.AdminIDs) == 0 {
		return false
	}
	uid := strconv.FormatInt(userID, 10)
	cid := strconv.FormatInt(chatID, 10)
	for _, id := range c.AdminIDs {
		if id == uid || id == cid {
			return true
		}
	}
	return false
}
