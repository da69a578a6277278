package datastore

import (
	"errors"
	"fmt"
)

// Store defines the interface for moving records into and out of a table store.
// Implementations are not safe for concurrent use; callers serialize access.
type Store interface {
	// Connect opens the store. Calling it on an open store is a no-op.
	Connect() error

	// CreateTable creates the table if it doesn't exist. An existing table is left unchanged.
	CreateTable(name string, schema Schema) error

	// UploadData inserts all records atomically and returns how many were inserted
	UploadData(table string, records []Record) (int, error)

	// QueryData returns the rows of table matching the equality filter (empty = all rows)
	QueryData(table string, where Record) ([]Record, error)

	// Close closes the store. Closing a closed store is a no-op.
	Close() error
}

// WithStore connects s, runs fn and always closes s afterwards, including when fn fails.
// A close failure is joined with the error returned by fn.
func WithStore(s Store, fn func(Store) error) (err error) {
	if err := s.Connect(); err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close store: %w", closeErr))
		}
	}()
	return fn(s)
}
