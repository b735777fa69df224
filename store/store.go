// ABOUTME: Local persisted client state on BadgerDB
// ABOUTME: Keeps the bearer token and per-role mock permission sets between runs
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const (
	// TokenKey is the well-known key for the bearer token.
	TokenKey = "auth_token"

	mockRolePermissionsPrefix = "mock_role_permissions_"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a small key/value store for client state.
type Store struct {
	db *badger.DB
	mu sync.RWMutex
}

// Open opens (or creates) the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that never touches disk.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return result, err
}

func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// KeysWithPrefix lists keys starting with prefix.
func (s *Store) KeysWithPrefix(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Token returns the persisted bearer token, or "" when none is stored.
func (s *Store) Token() string {
	v, err := s.Get(TokenKey)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(v))
}

func (s *Store) SetToken(token string) error {
	return s.Set(TokenKey, []byte(token))
}

func (s *Store) ClearToken() error {
	return s.Delete(TokenKey)
}

// MockRolePermissionsKey is the local fallback key for a role's permission set.
func MockRolePermissionsKey(roleID string) string {
	return mockRolePermissionsPrefix + roleID
}

// SaveMockRolePermissions stores the full permission id set for roleID.
func (s *Store) SaveMockRolePermissions(roleID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	return s.Set(MockRolePermissionsKey(roleID), data)
}

// MockRolePermissions loads a stored permission set. Missing means empty.
func (s *Store) MockRolePermissions(roleID string) ([]string, error) {
	data, err := s.Get(MockRolePermissionsKey(roleID))
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode permissions for role %s: %w", roleID, err)
	}
	return ids, nil
}
