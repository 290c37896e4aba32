package config

import (
	"os"
	"strings"
)

const envPrefix = "TADA_"

// loadFromEnv overrides config from TADA_* environment variables. Unset and
// empty variables leave the current value alone.
func loadFromEnv(cfg *Config) {
	str := map[string]*string{
		"BACKEND":             &cfg.Backend.Kind,
		"PROJECT_ID":          &cfg.Backend.ProjectID,
		"API_KEY":             &cfg.Backend.APIKey,
		"APP_ID":              &cfg.Backend.AppID,
		"AUTH_DOMAIN":         &cfg.Backend.AuthDomain,
		"DATABASE_URL":        &cfg.Backend.DatabaseURL,
		"MESSAGING_SENDER_ID": &cfg.Backend.MessagingSenderID,
		"DATA_DIR":            &cfg.Backend.DataDir,
		"THEME":               &cfg.UI.Theme,
		"FILTER":              &cfg.UI.Filter,
		"LOG_FILE":            &cfg.Log.File,
		"LOG_LEVEL":           &cfg.Log.Level,
	}
	for name, dst := range str {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv(envPrefix + "AUTO_PROVISION"); v != "" {
		cfg.Auth.AutoProvision = boolFromString(v)
	}
}

func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
