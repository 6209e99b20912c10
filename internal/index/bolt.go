package index

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const boltBucket = "index"

// Bolt is a Store backed by a single bbolt file.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (or creates) the bbolt file at path.
func NewBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("index: bolt file path is required")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction.
		val = make([]byte, len(v))
		copy(val, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *Bolt) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(boltBucket)).Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to update index bucket: %w", err)
		}
		return nil
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
