package store

import (
	"context"
	"os"

	"github.com/rcliao/campaign-memory/internal/model"
)

// Stats holds storage statistics.
type Stats struct {
	Dir         string            `json:"dir"`
	Total       int               `json:"total"`
	Collections []CollectionStats `json:"collections"`
}

// CollectionStats holds per-collection counts. SizeBytes includes the
// write-ahead log, which holds recent writes until a checkpoint.
type CollectionStats struct {
	Kind      model.Kind `json:"kind"`
	Path      string     `json:"path"`
	Records   int        `json:"records"`
	SizeBytes int64      `json:"size_bytes"`
}

// Stats returns per-collection statistics in priority order.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Dir: s.dir}
	for _, kind := range model.Kinds {
		c := s.collections[kind]
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}

		cs := CollectionStats{
			Kind:      kind,
			Path:      c.Path(),
			Records:   n,
			SizeBytes: fileSize(c.Path()) + fileSize(c.Path()+"-wal"),
		}
		st.Collections = append(st.Collections, cs)
		st.Total += n
	}
	return st, nil
}

// Collection returns the stats for kind, or nil when it is not present.
func (st *Stats) Collection(kind model.Kind) *CollectionStats {
	for i := range st.Collections {
		if st.Collections[i].Kind == kind {
			return &st.Collections[i]
		}
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
