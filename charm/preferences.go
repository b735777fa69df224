// ABOUTME: Per-user preference storage on top of the synced KV store
// ABOUTME: Lets the settings dialog follow the user across devices

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/telemsg/models"
)

const (
	preferencesPrefix = "preferences/"
	lastSyncKey       = "meta/last_sync"
	anonymousUser     = "anonymous"
)

// PreferenceStore keeps each signed-in user's preferences under their own key.
type PreferenceStore struct {
	client *Client
	userID func() string
}

// NewPreferenceStore returns a store keyed by whatever userID reports at call time.
func NewPreferenceStore(c *Client, userID func() string) *PreferenceStore {
	return &PreferenceStore{client: c, userID: userID}
}

func preferencesKey(userID string) []byte {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = anonymousUser
	}
	return []byte(preferencesPrefix + userID)
}

func (p *PreferenceStore) key() []byte {
	if p.userID == nil {
		return preferencesKey("")
	}
	return preferencesKey(p.userID())
}

// LoadPreferences returns the stored preferences, or the defaults when the
// user has never saved any. Missing fields keep their default values.
func (p *PreferenceStore) LoadPreferences() (models.Preferences, error) {
	prefs := models.DefaultPreferences()
	raw, err := p.client.Get(p.key())
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return models.DefaultPreferences(), fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs, nil
}

func (p *PreferenceStore) SavePreferences(prefs models.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := p.client.Set(p.key(), raw); err != nil {
		return fmt.Errorf("failed to store preferences: %w", err)
	}
	return nil
}

// StoredUsers lists the user ids that have preferences on this device.
func (c *Client) StoredUsers() ([]string, error) {
	keys, err := c.KeysWithPrefix([]byte(preferencesPrefix))
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(string(k), preferencesPrefix))
	}
	return users, nil
}
