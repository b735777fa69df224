// ABOUTME: Charm KV client wrapper with automatic sync support
// ABOUTME: Thread-safe singleton initialization using sync.Once

package charm

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

// store is the subset of charm/kv the client uses.
type store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// Client wraps charm KV with config and sync helpers.
type Client struct {
	kv     store
	config *Config
	online bool
	mu     sync.RWMutex
}

// GetClient returns the process-wide client, opening it on first use.
func GetClient() (*Client, error) {
	clientOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			clientErr = fmt.Errorf("failed to load config: %w", err)
			return
		}
		globalClient, clientErr = NewClient(cfg)
	})
	return globalClient, clientErr
}

// NewClient opens the Charm KV database for cfg.Host and pulls remote changes
// when the last sync is older than cfg.StaleThreshold.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{kv: db, config: cfg, online: true}
	if cfg.AutoSync {
		_ = c.SyncIfStale(time.Now())
	}
	return c, nil
}

func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.online {
		return "", fmt.Errorf("charm client is offline")
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

func (c *Client) IsConnected() bool {
	_, err := c.ID()
	return err == nil
}

// Sync exchanges changes with the charm server and records when it happened.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked(time.Now())
}

func (c *Client) syncLocked(now time.Time) error {
	if err := c.kv.Sync(); err != nil {
		return err
	}
	return c.kv.Set([]byte(lastSyncKey), []byte(now.UTC().Format(time.RFC3339)))
}

// SyncIfStale syncs only when the last recorded sync is older than the
// configured threshold, or when none was ever recorded.
func (c *Client) SyncIfStale(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastSyncLocked()
	if ok && now.Sub(last) < c.config.StaleThreshold {
		return nil
	}
	return c.syncLocked(now)
}

// LastSync reports when this device last synced.
func (c *Client) LastSync() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSyncLocked()
}

func (c *Client) lastSyncLocked() (time.Time, bool) {
	raw, err := c.kv.Get([]byte(lastSyncKey))
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get(key)
}

// Set stores a value and syncs if enabled.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(key, value); err != nil {
		return err
	}
	if c.config.AutoSync {
		_ = c.syncLocked(time.Now())
	}
	return nil
}

// Delete removes a key and syncs if enabled.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(key); err != nil {
		return err
	}
	if c.config.AutoSync {
		_ = c.syncLocked(time.Now())
	}
	return nil
}

func (c *Client) Keys() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Keys()
}

// KeysWithPrefix returns all keys starting with the given prefix.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes all synced data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}
