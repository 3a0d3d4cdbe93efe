// Package kv holds the string-keyed local slots the ledger and facade persist to.
package kv

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is a synchronous, single-writer key-value store.
// Get returns ErrNotFound when the key has never been set.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Open returns the backend named by kind: "memory", "sqlite" or "redis".
// For sqlite target is a file path; for redis it is a redis:// URL.
func Open(kind, target string) (Store, error) {
	switch kind {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "":
		return OpenSQLite(target)
	case "redis":
		return NewRedis(target, "gameworld:")
	default:
		return nil, fmt.Errorf("unknown local store %q", kind)
	}
}
