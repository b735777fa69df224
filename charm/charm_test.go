// ABOUTME: Tests for preference storage and stale-sync tracking
// ABOUTME: Runs against a temporary BadgerDB instead of a charm server

package charm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/telemsg/models"
)

func TestPreferencesDefaultWhenUnset(t *testing.T) {
	c, _ := NewTestClient(t, nil)
	store := NewPreferenceStore(c, func() string { return "u1" })

	prefs, err := store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(), prefs)
}

func TestPreferencesArePerUser(t *testing.T) {
	c, _ := NewTestClient(t, nil)
	user := "u1"
	store := NewPreferenceStore(c, func() string { return user })

	dark := models.DefaultPreferences()
	dark.Theme = "dark"
	dark.Sound = false
	require.NoError(t, store.SavePreferences(dark))

	got, err := store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, dark, got)

	user = "u2"
	got, err = store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "light", got.Theme)

	users, err := c.StoredUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)
}

func TestPreferencesWithoutUserUseAnonymousKey(t *testing.T) {
	c, _ := NewTestClient(t, nil)
	store := NewPreferenceStore(c, nil)
	require.NoError(t, store.SavePreferences(models.DefaultPreferences()))

	users, err := c.StoredUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{anonymousUser}, users)
}

func TestPartialPreferencesKeepDefaults(t *testing.T) {
	c, _ := NewTestClient(t, nil)
	require.NoError(t, c.Set(preferencesKey("u1"), []byte(`{"theme":"dark"}`)))

	prefs, err := NewPreferenceStore(c, func() string { return "u1" }).LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	assert.True(t, prefs.Notifications)
	assert.Equal(t, "en", prefs.Language)
}

func TestCorruptPreferencesReturnDefaultsWithError(t *testing.T) {
	c, _ := NewTestClient(t, nil)
	require.NoError(t, c.Set(preferencesKey("u1"), []byte(`not json`)))

	prefs, err := NewPreferenceStore(c, func() string { return "u1" }).LoadPreferences()
	assert.Error(t, err)
	assert.Equal(t, models.DefaultPreferences(), prefs)
}

func TestSyncIfStale(t *testing.T) {
	c, tkv := NewTestClient(t, &Config{Host: "localhost", StaleThreshold: time.Hour})
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok := c.LastSync()
	assert.False(t, ok)

	require.NoError(t, c.SyncIfStale(now))
	assert.Equal(t, 1, tkv.syncs, "never synced counts as stale")

	require.NoError(t, c.SyncIfStale(now.Add(30*time.Minute)))
	assert.Equal(t, 1, tkv.syncs, "fresh sync is not repeated")

	require.NoError(t, c.SyncIfStale(now.Add(2*time.Hour)))
	assert.Equal(t, 2, tkv.syncs)

	last, ok := c.LastSync()
	require.True(t, ok)
	assert.True(t, last.Equal(now.Add(2*time.Hour)))
}

func TestAutoSyncOnWrite(t *testing.T) {
	c, tkv := NewTestClient(t, &Config{Host: "localhost", AutoSync: true, StaleThreshold: time.Hour})
	require.NoError(t, c.Set([]byte("k"), []byte("v")))
	require.NoError(t, c.Delete([]byte("k")))
	assert.Equal(t, 2, tkv.syncs)
}

func TestResetClearsEverything(t *testing.T) {
	c, _ := NewTestClient(t, nil)
	require.NoError(t, c.Set(preferencesKey("u1"), []byte(`{}`)))
	require.NoError(t, c.Reset())

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
