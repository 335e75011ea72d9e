package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/rcliao/campaign-memory/internal/embedding"
	"github.com/rcliao/campaign-memory/internal/logging"
	"github.com/rcliao/campaign-memory/internal/model"
)

// Collection is the set of records for one kind, backed by its own SQLite file.
//
// Ranking uses cosine similarity between float32 vectors computed in float64.
// Ties keep insertion order.
type Collection struct {
	kind     model.Kind
	path     string
	db       *sql.DB
	embedder embedding.Embedder

	// mu serializes writes so sequence numbers never collide.
	mu sync.Mutex
}

// OpenCollection opens or creates the collection for kind at dbPath.
func OpenCollection(kind model.Kind, dbPath string, embedder embedding.Embedder) (*Collection, error) {
	if !kind.Valid() {
		return nil, goerr.Wrap(model.ErrUnknownCollection, "invalid kind", goerr.V("kind", kind))
	}
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &Collection{kind: kind, path: dbPath, db: db, embedder: embedder}, nil
}

// Kind returns the kind stored in this collection.
func (c *Collection) Kind() model.Kind { return c.kind }

// Path returns the database file path.
func (c *Collection) Path() string { return c.path }

// Add embeds text and stores it with meta. The returned id has the form
// <kind>_<natural id>_<seq>. Nothing is written when embedding fails.
func (c *Collection) Add(ctx context.Context, text string, meta model.Metadata) (string, error) {
	text = strings.TrimSpace(text)
	norm, naturalID, err := c.prepare(text, meta)
	if err != nil {
		return "", err
	}

	vec, err := c.embed(ctx, text)
	if err != nil {
		return "", err
	}

	id, err := c.insert(ctx, text, vec, norm, naturalID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	logging.From(ctx).Debug("memory added", slog.String("kind", string(c.kind)), slog.String("id", id))
	return id, nil
}

// Query returns up to k records ranked by similarity to text, restricted to
// records whose metadata matches every key in filter.
func (c *Collection) Query(ctx context.Context, text string, k int, filter model.Metadata) ([]model.Hit, error) {
	if k <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "k must be positive", goerr.V("k", k))
	}
	nf, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	vec, err := c.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	records, err := c.scan(ctx, nf, 0)
	if err != nil {
		return nil, err
	}

	hits := make([]model.Hit, 0, len(records))
	for _, r := range records {
		hits = append(hits, model.Hit{Record: r, Score: embedding.CosineSimilarity(vec, r.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// List returns records matching filter in insertion order. A limit <= 0
// returns all of them.
func (c *Collection) List(ctx context.Context, filter model.Metadata, limit int) ([]model.Record, error) {
	nf, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	return c.scan(ctx, nf, limit)
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, persistence(err, "count records", goerr.V("kind", c.kind))
	}
	return n, nil
}

// Clear removes every record. The sequence restarts afterwards.
func (c *Collection) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence(err, "begin clear", goerr.V("kind", c.kind))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return persistence(err, "clear records", goerr.V("kind", c.kind))
	}
	if err := tx.Commit(); err != nil {
		return persistence(err, "commit clear", goerr.V("kind", c.kind))
	}
	logging.From(ctx).Info("collection cleared", slog.String("kind", string(c.kind)))
	return nil
}

// Close closes the database.
func (c *Collection) Close() error {
	return c.db.Close()
}

// prepare validates a record before anything is embedded or written.
func (c *Collection) prepare(text string, meta model.Metadata) (model.Metadata, string, error) {
	if text == "" {
		return nil, "", goerr.Wrap(model.ErrInvalidRecord, "content is required", goerr.V("kind", c.kind))
	}
	norm, err := meta.Normalize()
	if err != nil {
		return nil, "", err
	}

	switch t := norm[model.MetaType]; t {
	case nil:
		norm[model.MetaType] = string(c.kind)
	case string(c.kind):
	default:
		return nil, "", goerr.Wrap(model.ErrInvalidRecord, "record type does not match collection",
			goerr.V("kind", c.kind), goerr.V("type", t))
	}

	naturalID, _ := norm[c.kind.IDField()].(string)
	if naturalID == "" {
		return nil, "", goerr.Wrap(model.ErrInvalidRecord, "natural id is required",
			goerr.V("kind", c.kind), goerr.V("field", c.kind.IDField()))
	}
	return norm, naturalID, nil
}

func (c *Collection) embed(ctx context.Context, text string) (embedding.Vector, error) {
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, model.ErrEncoderUnavailable) {
			err = goerr.Wrap(model.ErrEncoderUnavailable, "embed failed", goerr.V("cause", err.Error()))
		}
		return nil, goerr.Wrap(err, "embed text", goerr.V("kind", c.kind))
	}
	if len(vec) == 0 {
		return nil, goerr.Wrap(model.ErrEncoderUnavailable, "encoder returned an empty vector", goerr.V("kind", c.kind))
	}
	return vec, nil
}

func (c *Collection) insert(ctx context.Context, text string, vec embedding.Vector, meta model.Metadata, naturalID string, createdAt time.Time) (string, error) {
	blob, err := encodeVector(vec)
	if err != nil {
		return "", persistence(err, "encode vector", goerr.V("kind", c.kind))
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", goerr.Wrap(model.ErrInvalidRecord, "marshal metadata", goerr.V("cause", err.Error()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", persistence(err, "begin insert", goerr.V("kind", c.kind))
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM records`).Scan(&seq); err != nil {
		return "", persistence(err, "allocate seq", goerr.V("kind", c.kind))
	}
	id := fmt.Sprintf("%s_%s_%d", c.kind, naturalID, seq)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (seq, id, text, vector, dims, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seq, id, text, blob, len(vec), string(metaJSON), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", persistence(err, "insert record", goerr.V("kind", c.kind), goerr.V("id", id))
	}
	if err := tx.Commit(); err != nil {
		return "", persistence(err, "commit insert", goerr.V("kind", c.kind), goerr.V("id", id))
	}
	return id, nil
}

// scan reads records in seq order. String filter values are pushed down to
// SQL; the full filter is then checked in Go.
func (c *Collection) scan(ctx context.Context, filter model.Metadata, limit int) ([]model.Record, error) {
	var where []string
	var args []interface{}
	for k, v := range filter {
		if s, ok := v.(string); ok {
			where = append(where, "json_extract(metadata, ?) = ?")
			args = append(args, `$."`+k+`"`, s)
		}
	}

	query := `SELECT seq, id, text, vector, metadata, created_at FROM records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence(err, "query records", goerr.V("kind", c.kind))
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := c.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !r.Metadata.Matches(filter) {
			continue
		}
		records = append(records, r)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(err, "read records", goerr.V("kind", c.kind))
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (c *Collection) scanRecord(row scanner) (model.Record, error) {
	r := model.Record{Kind: c.kind}
	var blob []byte
	var metaJSON, createdAt string

	if err := row.Scan(&r.Seq, &r.ID, &r.Text, &blob, &metaJSON, &createdAt); err != nil {
		return r, persistence(err, "scan record", goerr.V("kind", c.kind))
	}

	vec, err := decodeVector(blob)
	if err != nil {
		return r, persistence(err, "decode vector", goerr.V("id", r.ID))
	}
	r.Vector = vec

	if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
		return r, persistence(err, "decode metadata", goerr.V("id", r.ID))
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return r, nil
}

func normalizeFilter(filter model.Metadata) (model.Metadata, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	for k := range filter {
		if k == "" || strings.ContainsAny(k, `"\`) {
			return nil, goerr.Wrap(model.ErrInvalidFilter, "invalid filter key", goerr.V("key", k))
		}
	}
	nf, err := filter.Normalize()
	if err != nil {
		return nil, goerr.Wrap(model.ErrInvalidFilter, "filter values must be scalars", goerr.V("filter", filter))
	}
	return nf, nil
}

func encodeVector(vec embedding.Vector) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeVector(blob []byte) (embedding.Vector, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob has %d bytes", len(blob))
	}
	vec := make(embedding.Vector, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return vec, nil
}
