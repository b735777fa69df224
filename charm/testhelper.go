// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Backs the client with a temporary BadgerDB so no charm server is needed

package charm

import (
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// testKV gives BadgerDB the charm/kv method set for tests.
type testKV struct {
	db    *badger.DB
	syncs int
}

func (t *testKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (t *testKV) Set(key, value []byte) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (t *testKV) Delete(key []byte) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (t *testKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (t *testKV) Sync() error {
	t.syncs++
	return nil
}

func (t *testKV) Reset() error {
	return t.db.DropAll()
}

// NewTestClient creates a charm client backed by a temporary BadgerDB.
// The database is closed when the test ends.
func NewTestClient(t *testing.T, cfg *Config) (*Client, *testKV) {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	if cfg == nil {
		cfg = &Config{Host: "localhost", StaleThreshold: DefaultConfig().StaleThreshold}
	}
	tkv := &testKV{db: db}
	return &Client{kv: tkv, config: cfg}, tkv
}
