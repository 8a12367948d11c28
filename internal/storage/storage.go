// Package storage provides the key-value facility the note collection is
// persisted to. Every backend stores opaque byte values under string keys,
// synchronously, without transactions or versioning.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

// Storage is a synchronous key-value store.
type Storage interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // "file" | "memory" | "mongo" | "postgres"
	DataDir       string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Backend {
	case "", "file":
		return NewFile(opts.DataDir)
	case "memory":
		return NewMemory(), nil
	case "mongo":
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
