package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	defaultBucket      = "storefront"
	defaultOpenTimeout = time.Second
)

// BoltStore persists values in a single bbolt bucket.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
	closed atomic.Bool
}

// BoltOption customises BoltStore construction.
type BoltOption func(*boltConfig)

type boltConfig struct {
	bucket  string
	timeout time.Duration
}

// WithBucket overrides the bucket name.
func WithBucket(name string) BoltOption {
	return func(cfg *boltConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.bucket = trimmed
		}
	}
}

// WithOpenTimeout bounds how long Open waits for the file lock.
func WithOpenTimeout(timeout time.Duration) BoltOption {
	return func(cfg *boltConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// OpenBolt opens (creating if needed) the database file at path.
func OpenBolt(path string, opts ...BoltOption) (*BoltStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("localstore: path is required")
	}
	cfg := boltConfig{bucket: defaultBucket, timeout: defaultOpenTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("localstore: create dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: cfg.timeout})
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}

	bucket := []byte(cfg.bucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstore: create bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: bucket}, nil
}

// Get copies the value out of the read transaction.
func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	if err := s.check(key); err != nil {
		return nil, false, err
	}
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		value = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("localstore: get %s: %w", key, err)
	}
	return value, found, nil
}

// Put writes value under key.
func (s *BoltStore) Put(key string, value []byte) error {
	if err := s.check(key); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("localstore: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *BoltStore) Delete(key string) error {
	if err := s.check(key); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("localstore: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the file lock. Subsequent calls return ErrClosed.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) check(key string) error {
	if s == nil || s.db == nil || s.closed.Load() {
		return ErrClosed
	}
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}
	return nil
}
