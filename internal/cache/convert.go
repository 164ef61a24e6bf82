package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/parser"
)

// Source is one upload to convert. Every field takes part in the cache key:
// the filename picks the converter and fills the result's metadata, and the
// PDF fallback can change the converted text.
type Source struct {
	Filename    string
	Data        []byte
	PDFFallback bool
}

// Key returns the cache key for s.
func (s Source) Key() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%t\x00", strings.ToLower(filepath.Base(s.Filename)), s.PDFFallback)
	h.Write(s.Data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Convert returns the cached conversion of src, converting and storing it on
// a miss. The bool reports a cache hit. Cache failures are logged and never
// fail the conversion.
func Convert(ctx context.Context, store Store, log *slog.Logger, src Source) (*document.ConversionResult, bool, error) {
	if store == nil {
		store = Nop{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	key := src.Key()
	if res, err := store.Get(ctx, key); err != nil {
		log.Warn("cache lookup failed", "file", src.Filename, "key", key, "error", err)
	} else if res != nil {
		log.Debug("conversion cache hit", "file", src.Filename, "key", key)
		return res, true, nil
	}

	res, err := parser.ConvertBytes(src.Data, filepath.Base(src.Filename), parser.WithPDFFallback(src.PDFFallback))
	if err != nil {
		return nil, false, err
	}
	if err := store.Put(ctx, key, res); err != nil {
		log.Warn("cache store failed", "file", src.Filename, "key", key, "error", err)
	}
	return res, false, nil
}
