// ABOUTME: Client configuration stored at XDG paths with .env and environment overrides
// ABOUTME: Holds backend URL, realtime reconnect delay, fixture fallback and logging settings
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
)

// AppName names the XDG directories and the Charm KV database.
const AppName = "telemsg"

const (
	DefaultAPIURL         = "http://localhost:8080/api"
	DefaultReconnectDelay = 3 * time.Second
	DefaultHTTPTimeout    = 15 * time.Second
)

// Config holds the client settings.
type Config struct {
	APIURL           string `json:"api_url"`
	ReconnectDelayMS int    `json:"reconnect_delay_ms"`
	HTTPTimeoutMS    int    `json:"http_timeout_ms"`
	// FixtureFallback serves canned admin data when the backend cannot answer.
	FixtureFallback bool   `json:"fixture_fallback"`
	DataDir         string `json:"data_dir,omitempty"`
	LogFile         string `json:"log_file,omitempty"`
	LogLevel        string `json:"log_level,omitempty"`
	LogFormat       string `json:"log_format,omitempty"`
	DeviceID        string `json:"device_id,omitempty"`
}

// Default returns a config with the built-in defaults.
func Default() *Config {
	return &Config{
		APIURL:           DefaultAPIURL,
		ReconnectDelayMS: int(DefaultReconnectDelay / time.Millisecond),
		HTTPTimeoutMS:    int(DefaultHTTPTimeout / time.Millisecond),
		FixtureFallback:  true,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// ConfigDir returns the XDG config directory for telemsg.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads the config file and applies overrides. Missing file means defaults.
// Precedence: defaults < config.json < .env < process environment:
// - TELEMSG_API_URL
// - TELEMSG_RECONNECT_DELAY_MS
// - TELEMSG_HTTP_TIMEOUT_MS
// - TELEMSG_FIXTURE_FALLBACK
// - TELEMSG_DATA_DIR
// - TELEMSG_LOG_FILE
// - TELEMSG_LOG_LEVEL
// - TELEMSG_LOG_FORMAT.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// .env never overrides variables already present in the environment
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEMSG_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("TELEMSG_RECONNECT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReconnectDelayMS = n
		}
	}
	if v := os.Getenv("TELEMSG_HTTP_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPTimeoutMS = n
		}
	}
	if v := os.Getenv("TELEMSG_FIXTURE_FALLBACK"); v != "" {
		cfg.FixtureFallback = v == "true" || v == "1"
	}
	if v := os.Getenv("TELEMSG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TELEMSG_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("TELEMSG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TELEMSG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.ReconnectDelayMS <= 0 {
		c.ReconnectDelayMS = int(DefaultReconnectDelay / time.Millisecond)
	}
	if c.HTTPTimeoutMS <= 0 {
		c.HTTPTimeoutMS = int(DefaultHTTPTimeout / time.Millisecond)
	}
}

// Save writes the config file with restricted permissions.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// DataPath returns the directory for local client state.
func (c *Config) DataPath() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(xdg.DataHome, AppName)
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

// EnsureDeviceID assigns a device identifier on first use and persists it.
func (c *Config) EnsureDeviceID() (string, error) {
	if c.DeviceID != "" {
		return c.DeviceID, nil
	}
	c.DeviceID = GenerateID()
	if err := c.Save(); err != nil {
		return c.DeviceID, err
	}
	return c.DeviceID, nil
}

// GenerateID returns a new ULID string.
func GenerateID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
