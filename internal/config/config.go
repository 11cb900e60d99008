// Package config loads server settings from the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// DefaultAppSecret is the application-wide encryption secret compiled into
// the binary. It is combined with the device identifier to derive the local
// entitlement key; overriding it orphans previously written caches.
const DefaultAppSecret = "b4c81f5a7d3e92c60f8aa1d4e7652b09c3df8e14a260b97d515c04f6ae38d27b"

// Config holds environment-driven settings.
type Config struct {
	Addr        string `envconfig:"ADDR" default:":3000"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	AdminSecret string `envconfig:"ADMIN_SECRET" default:"dev-secret-key"`
	UserDataDir string `envconfig:"EMR_USER_DATA"`
	AppSecret   string `envconfig:"APP_ENC_SECRET"`
}

// Load reads configuration from the environment and fills defaults that
// cannot be expressed as struct tags.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if c.UserDataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		c.UserDataDir = filepath.Join(home, ".emr-app")
	}
	if c.AppSecret == "" {
		c.AppSecret = DefaultAppSecret
	}
	return c, nil
}
