package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/hierchunk/internal/document"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS conversions (
	key        TEXT PRIMARY KEY,
	file_name  TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteStore keeps entries in a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prepare cache database: %w", err)
		}
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*document.ConversionResult, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM conversions WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite cache get: %w", err)
	}
	res, err := document.Decode(bytes.NewReader(payload))
	if err != nil {
		s.log.Warn("ignoring malformed cache entry", "key", key, "error", err)
		return nil, nil
	}
	return res, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, res *document.ConversionResult) error {
	if err := validKey(key); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := document.Encode(&buf, res); err != nil {
		return fmt.Errorf("sqlite cache encode: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (key, file_name, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET file_name = excluded.file_name, payload = excluded.payload, created_at = excluded.created_at`,
		key, res.Metadata.FileName, buf.Bytes(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite cache put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
