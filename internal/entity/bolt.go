package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSnapshot = []byte("snapshot")
	keyData        = []byte("data")
	keyVersion     = []byte("version")
)

// BoltCache keeps the last good snapshot on local disk so the bot can start
// while every remote source is down. Writes are transactional.
type BoltCache struct {
	db *bolt.DB
}

var _ Source = (*BoltCache)(nil)

// OpenBoltCache opens (or creates) a bbolt database at path.
func OpenBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("entity: open cache %q: %w", path, err)
	}
	return &BoltCache{db: db}, nil
}

// Close closes the underlying database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

// Save replaces the cached snapshot. snap must be sealed.
func (c *BoltCache) Save(snap *Snapshot) error {
	if snap == nil || snap.Version == "" {
		return fmt.Errorf("entity: cache: snapshot must be sealed")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("entity: cache: marshal: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSnapshot)
		if err != nil {
			return err
		}
		if err := b.Put(keyData, data); err != nil {
			return err
		}
		return b.Put(keyVersion, []byte(snap.Version))
	})
	if err != nil {
		return fmt.Errorf("entity: cache: save: %w", err)
	}
	return nil
}

// Version returns the version of the cached snapshot, or "" when empty.
func (c *BoltCache) Version() (string, error) {
	var v string
	err := c.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketSnapshot); b != nil {
			v = string(b.Get(keyVersion))
		}
		return nil
	})
	return v, err
}

// Load returns the cached snapshot or [ErrNoSnapshot].
func (c *BoltCache) Load(ctx context.Context) (*Snapshot, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if b == nil {
			return nil
		}
		// bbolt slices are only valid inside the transaction.
		if v := b.Get(keyData); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("entity: cache: load: %w", err)
	}
	if data == nil {
		return nil, ErrNoSnapshot
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("entity: cache: unmarshal: %w", err)
	}
	if err := snap.Seal(); err != nil {
		return nil, fmt.Errorf("entity: cache: validate: %w", err)
	}
	return &snap, nil
}
