package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/hierchunk/internal/document"
)

// FileStore writes one <key>.json file per entry in a directory.
type FileStore struct {
	dir string
	log *slog.Logger
}

func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(ctx context.Context, key string) (*document.ConversionResult, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := document.DecodeFile(s.path(key))
	if err == nil {
		return res, nil
	}
	switch document.KindOf(err) {
	case document.NotFoundKind:
		return nil, nil
	case document.MalformedCacheKind:
		s.log.Warn("ignoring malformed cache entry", "key", key, "error", err)
		return nil, nil
	}
	return nil, err
}

// Put writes through a temporary file so readers never see a partial entry.
func (s *FileStore) Put(ctx context.Context, key string, res *document.ConversionResult) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("file cache put: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := document.Encode(tmp, res); err != nil {
		tmp.Close()
		return fmt.Errorf("file cache encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file cache put: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("file cache put: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
