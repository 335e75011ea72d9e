// Package store persists memory collections in SQLite and answers
// nearest-neighbour queries over them.
package store

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/campaign-memory/internal/embedding"
	"github.com/rcliao/campaign-memory/internal/model"
)

// Store owns one Collection per kind. Each collection lives in its own
// database file under the data directory.
type Store struct {
	dir         string
	embedder    embedding.Embedder
	collections map[model.Kind]*Collection
}

// Open opens or creates the four collections under dir.
func Open(dir string, embedder embedding.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(model.ErrPersistence, "create data dir",
			goerr.V("dir", dir), goerr.V("cause", err.Error()))
	}

	s := &Store{dir: dir, embedder: embedder, collections: make(map[model.Kind]*Collection, len(model.Kinds))}
	for _, kind := range model.Kinds {
		c, err := OpenCollection(kind, filepath.Join(dir, string(kind)+".db"), embedder)
		if err != nil {
			s.closeCollections()
			return nil, err
		}
		s.collections[kind] = c
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Collection returns the collection for kind.
func (s *Store) Collection(kind model.Kind) (*Collection, error) {
	c, ok := s.collections[kind]
	if !ok {
		return nil, goerr.Wrap(model.ErrUnknownCollection, "no collection for kind", goerr.V("kind", kind))
	}
	return c, nil
}

// Add stores text in the collection for kind.
func (s *Store) Add(ctx context.Context, kind model.Kind, text string, meta model.Metadata) (string, error) {
	c, err := s.Collection(kind)
	if err != nil {
		return "", err
	}
	return c.Add(ctx, text, meta)
}

// Query runs a similarity query against the collection for kind.
func (s *Store) Query(ctx context.Context, kind model.Kind, text string, k int, filter model.Metadata) ([]model.Hit, error) {
	c, err := s.Collection(kind)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, text, k, filter)
}

// List returns records of kind matching filter in insertion order.
func (s *Store) List(ctx context.Context, kind model.Kind, filter model.Metadata, limit int) ([]model.Record, error) {
	c, err := s.Collection(kind)
	if err != nil {
		return nil, err
	}
	return c.List(ctx, filter, limit)
}

// Clear removes every record of kind. Other collections are untouched.
func (s *Store) Clear(ctx context.Context, kind model.Kind) error {
	c, err := s.Collection(kind)
	if err != nil {
		return err
	}
	return c.Clear(ctx)
}

// Close closes every collection, then the embedder if it holds resources.
func (s *Store) Close() error {
	first := s.closeCollections()
	if closer, ok := s.embedder.(io.Closer); ok {
		if err := closer.Close(); err != nil && first == nil {
			first = goerr.Wrap(err, "close embedder")
		}
	}
	return first
}

func (s *Store) closeCollections() error {
	var first error
	for _, c := range s.collections {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, persistence(err, "create db dir", goerr.V("path", dbPath))
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, persistence(err, "open db", goerr.V("path", dbPath))
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, persistence(err, "migrate", goerr.V("path", dbPath))
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq        INTEGER PRIMARY KEY,
		id         TEXT NOT NULL UNIQUE,
		text       TEXT NOT NULL,
		vector     BLOB NOT NULL,
		dims       INTEGER NOT NULL,
		metadata   TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

func persistence(err error, msg string, opts ...goerr.Option) error {
	opts = append(opts, goerr.V("cause", err.Error()))
	return goerr.Wrap(model.ErrPersistence, msg, opts...)
}
