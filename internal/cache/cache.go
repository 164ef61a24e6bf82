// Package cache keeps conversion results keyed by a hash of the source
// bytes, file name and converter options so a document is only converted
// once.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/hierchunk/internal/document"
)

// Store holds cached conversion results. Get reports a miss with a nil
// result and a nil error; entries that cannot be decoded are misses too.
type Store interface {
	Get(ctx context.Context, key string) (*document.ConversionResult, error)
	Put(ctx context.Context, key string, res *document.ConversionResult) error
	Close() error
}

// Key returns the SHA-256 hex digest of data. Conversions are keyed with
// Source.Key.
func Key(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// Open builds a store for a backend name: "file" (a directory of JSON files),
// "sqlite" (a single database file) or "none".
func Open(backend, path string, log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	switch strings.ToLower(backend) {
	case "", "none":
		return Nop{}, nil
	case "file":
		return NewFileStore(path, log)
	case "sqlite":
		return NewSQLiteStore(path, log)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*document.ConversionResult, error) {
	return nil, nil
}

func (Nop) Put(context.Context, string, *document.ConversionResult) error {
	return nil
}

func (Nop) Close() error { return nil }

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}
