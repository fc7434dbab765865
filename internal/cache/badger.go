package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// badgerStore persists cached responses across daemon restarts. TTL handling
// is delegated to badger entry expiry.
type badgerStore struct {
	db         *badger.DB
	defaultTTL time.Duration
}

// NewBadger opens (or creates) a badger-backed cache at dir.
func NewBadger(dir string, defaultTTL time.Duration) (Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("badger cache requires a directory")
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultMemoryTTL
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	// Cached bodies are small JSON payloads; shrink the value log accordingly.
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &badgerStore{db: db, defaultTTL: defaultTTL}, nil
}

func (s *badgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

func (s *badgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (s *badgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
