package store

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/rcliao/campaign-memory/internal/model"
)

// Export returns every record in every collection, kinds in priority order
// and records in insertion order. Vectors are included.
func (s *Store) Export(ctx context.Context) ([]model.Record, error) {
	var records []model.Record
	for _, kind := range model.Kinds {
		rs, err := s.collections[kind].List(ctx, nil, 0)
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
	}
	return records, nil
}

// Import stores records from an export. Each record gets a fresh id in its
// collection. Stored vectors are reused when their dimension matches the
// encoder; otherwise the text is embedded again.
func (s *Store) Import(ctx context.Context, records []model.Record) (int, error) {
	imported := 0
	for _, r := range records {
		c, err := s.Collection(r.Kind)
		if err != nil {
			return imported, goerr.Wrap(err, "import record", goerr.V("id", r.ID))
		}
		if _, err := c.restore(ctx, r); err != nil {
			return imported, goerr.Wrap(err, "import record", goerr.V("id", r.ID))
		}
		imported++
	}
	return imported, nil
}

func (c *Collection) restore(ctx context.Context, r model.Record) (string, error) {
	text := strings.TrimSpace(r.Text)
	norm, naturalID, err := c.prepare(text, r.Metadata)
	if err != nil {
		return "", err
	}

	vec := r.Vector
	if len(vec) == 0 || len(vec) != c.embedder.Dims() {
		if vec, err = c.embed(ctx, text); err != nil {
			return "", err
		}
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return c.insert(ctx, text, vec, norm, naturalID, createdAt)
}
