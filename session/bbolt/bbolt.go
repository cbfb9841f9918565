// Package bbolt provides a BBolt-backed session.Backend.
package bbolt

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/vocabadmin/session"
)

var sessionsBucket = []byte("sessions")

// Backend implements session.Backend backed by a BBolt database.
type Backend struct {
	db *bbolt.DB
}

var _ session.Backend = (*Backend)(nil)

// NewBackend returns a Backend backed by the given BBolt database.
func NewBackend(db *bbolt.DB) *Backend {
	return &Backend{db: db}
}

// NewBackendFromFile opens a BBolt database at the given path and returns a
// new Backend. BBolt holds an exclusive file lock, so a second process
// opening the same path blocks until options.Timeout and then fails.
func NewBackendFromFile(path string, options *bbolt.Options) (*Backend, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBackend(db), nil
}

// Close closes the underlying BBolt database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return session.ErrNotFound
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return session.ErrNotFound
		}
		// data is only valid for the lifetime of the transaction.
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *Backend) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
}

func (b *Backend) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}
