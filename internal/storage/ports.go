package storage

import (
	"context"
	"errors"
)

// Keys under which the tracker persists its state.
const (
	KeyTransactions = "flowfunds:transactions"
	KeySettings     = "flowfunds:settings"
)

// ErrClosed is returned by a Store used after Close.
var ErrClosed = errors.New("store closed")

// Ports for outbound adapters.
type (
	// Store is a string key to raw value store, the shape of browser local storage.
	Store interface {
		// Get returns the value for key. found is false when the key is absent.
		Get(ctx context.Context, key string) (value []byte, found bool, err error)
		// Set replaces the whole value stored under key.
		Set(ctx context.Context, key string, value []byte) error
		// Delete removes keys; absent keys are ignored.
		Delete(ctx context.Context, keys ...string) error
		Close() error
	}

	// Watcher is implemented by stores whose contents can change outside the process.
	Watcher interface {
		// Watch blocks until ctx is done, calling onChange with the key of every
		// external modification.
		Watch(ctx context.Context, onChange func(key string)) error
	}
)
