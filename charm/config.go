// ABOUTME: Configuration for Charm KV backend connection
// ABOUTME: Handles server settings and auto-sync preferences

package charm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the Charm KV database.
	AppName = "telemsg"

	ConfigFileName = "sync.json"

	hostEnv = "TELEMSG_CHARM_HOST"
)

// Config holds charm connection settings.
type Config struct {
	Host string `json:"host,omitempty"`

	// AutoSync pushes after every write.
	AutoSync bool `json:"auto_sync"`

	// StaleThreshold is how old the last sync may be before startup pulls again.
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

func configPath() (string, error) {
	dir := filepath.Join(xdg.ConfigHome, AppName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// LoadConfig reads the sync settings. A missing or unreadable file gives the
// defaults; TELEMSG_CHARM_HOST overrides the host either way.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path, err := configPath(); err == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var onDisk Config
			if json.Unmarshal(data, &onDisk) == nil {
				cfg = &onDisk
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	if cfg.StaleThreshold == 0 {
		cfg.StaleThreshold = kv.DefaultStaleThreshold
	}
	if host := os.Getenv(hostEnv); host != "" {
		cfg.Host = host
	}
	return cfg, nil
}

func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}
