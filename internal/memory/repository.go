// Package memory is the typed repository over the per-kind collections.
// It owns metadata normalization and the save/retrieve contract per kind.
package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/rcliao/campaign-memory/internal/chunker"
	"github.com/rcliao/campaign-memory/internal/logging"
	"github.com/rcliao/campaign-memory/internal/model"
)

// DefaultK is the number of results returned when k is zero.
const DefaultK = 5

// Backend is the collection storage the repository writes through.
// *store.Store implements it.
type Backend interface {
	Add(ctx context.Context, kind model.Kind, text string, meta model.Metadata) (string, error)
	Query(ctx context.Context, kind model.Kind, text string, k int, filter model.Metadata) ([]model.Hit, error)
	List(ctx context.Context, kind model.Kind, filter model.Metadata, limit int) ([]model.Record, error)
}

// Entity identifies the subject of a memory. Name is ignored for sessions.
type Entity struct {
	ID   string
	Name string
}

// Option configures a Repository.
type Option func(*Repository)

// WithDefaultK sets the result count used when k is zero.
func WithDefaultK(k int) Option {
	return func(r *Repository) {
		if k > 0 {
			r.defaultK = k
		}
	}
}

// WithChunkOptions sets how transcripts are split on ingest.
func WithChunkOptions(opts chunker.Options) Option {
	return func(r *Repository) { r.chunk = opts }
}

// Repository saves and retrieves memories for the four entity kinds.
type Repository struct {
	backend  Backend
	defaultK int
	chunk    chunker.Options
}

// New creates a Repository over backend.
func New(backend Backend, opts ...Option) *Repository {
	r := &Repository{
		backend:  backend,
		defaultK: DefaultK,
		chunk:    chunker.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save stores content as a memory about ent. Reserved keys in extra are
// dropped; type and the natural key fields always come from kind and ent.
func (r *Repository) Save(ctx context.Context, kind model.Kind, ent Entity, content string, extra model.Metadata) (string, error) {
	if !kind.Valid() {
		return "", goerr.Wrap(model.ErrUnknownCollection, "save", goerr.V("kind", kind))
	}
	ent.ID = strings.TrimSpace(ent.ID)
	ent.Name = strings.TrimSpace(ent.Name)
	if ent.ID == "" {
		return "", goerr.Wrap(model.ErrInvalidRecord, "natural id is required", goerr.V("kind", kind))
	}
	if kind.NameField() != "" && ent.Name == "" {
		return "", goerr.Wrap(model.ErrInvalidRecord, "name is required", goerr.V("kind", kind), goerr.V("id", ent.ID))
	}

	logger := logging.From(ctx)
	meta := make(model.Metadata, len(extra)+3)
	for k, v := range extra {
		if kind.Reserved(k) {
			logger.Debug("ignoring reserved metadata key", slog.String("kind", string(kind)), slog.String("key", k))
			continue
		}
		meta[k] = v
	}
	meta[model.MetaType] = string(kind)
	meta[kind.IDField()] = ent.ID
	if f := kind.NameField(); f != "" {
		meta[f] = ent.Name
	}

	id, err := r.backend.Add(ctx, kind, content, meta)
	if err != nil {
		return "", goerr.Wrap(err, "save memory", goerr.V("kind", kind), goerr.V("natural_id", ent.ID))
	}
	return id, nil
}

// Retrieve returns up to k memories of kind most similar to query,
// restricted by filter. k == 0 uses the default.
func (r *Repository) Retrieve(ctx context.Context, kind model.Kind, query string, filter Filter, k int) ([]model.Hit, error) {
	if !kind.Valid() {
		return nil, goerr.Wrap(model.ErrUnknownCollection, "retrieve", goerr.V("kind", kind))
	}
	switch {
	case k < 0:
		return nil, goerr.Wrap(model.ErrInvalidArgument, "k must not be negative", goerr.V("k", k))
	case k == 0:
		k = r.defaultK
	}
	meta, err := filter.Metadata(kind)
	if err != nil {
		return nil, err
	}

	hits, err := r.backend.Query(ctx, kind, query, k, meta)
	if err != nil {
		return nil, goerr.Wrap(err, "retrieve memories", goerr.V("kind", kind), goerr.V("filter", filter.String()))
	}
	return hits, nil
}

// List returns memories of kind matching filter in insertion order without a
// similarity search. A limit <= 0 returns all of them.
func (r *Repository) List(ctx context.Context, kind model.Kind, filter Filter, limit int) ([]model.Record, error) {
	if !kind.Valid() {
		return nil, goerr.Wrap(model.ErrUnknownCollection, "list", goerr.V("kind", kind))
	}
	meta, err := filter.Metadata(kind)
	if err != nil {
		return nil, err
	}
	return r.backend.List(ctx, kind, meta, limit)
}

// SaveSessionMemory stores an event of session sessionID.
func (r *Repository) SaveSessionMemory(ctx context.Context, sessionID, content string, extra model.Metadata) (string, error) {
	return r.Save(ctx, model.KindSession, Entity{ID: sessionID}, content, extra)
}

// SaveNPCMemory stores a fact about an NPC.
func (r *Repository) SaveNPCMemory(ctx context.Context, npcID, npcName, content string, extra model.Metadata) (string, error) {
	return r.Save(ctx, model.KindNPC, Entity{ID: npcID, Name: npcName}, content, extra)
}

// SaveLocationMemory stores a fact about a location.
func (r *Repository) SaveLocationMemory(ctx context.Context, locationID, locationName, content string, extra model.Metadata) (string, error) {
	return r.Save(ctx, model.KindLocation, Entity{ID: locationID, Name: locationName}, content, extra)
}

// SaveItemMemory stores a fact about an item.
func (r *Repository) SaveItemMemory(ctx context.Context, itemID, itemName, content string, extra model.Metadata) (string, error) {
	return r.Save(ctx, model.KindItem, Entity{ID: itemID, Name: itemName}, content, extra)
}

// RetrieveSessionMemories searches session memories, scoped to sessionID when
// it is not empty.
func (r *Repository) RetrieveSessionMemories(ctx context.Context, query, sessionID string, k int) ([]model.Hit, error) {
	return r.Retrieve(ctx, model.KindSession, query, FilterFrom(sessionID, ""), k)
}

// RetrieveNPCMemories searches NPC memories.
func (r *Repository) RetrieveNPCMemories(ctx context.Context, query string, filter Filter, k int) ([]model.Hit, error) {
	return r.Retrieve(ctx, model.KindNPC, query, filter, k)
}

// RetrieveLocationMemories searches location memories.
func (r *Repository) RetrieveLocationMemories(ctx context.Context, query string, filter Filter, k int) ([]model.Hit, error) {
	return r.Retrieve(ctx, model.KindLocation, query, filter, k)
}

// RetrieveItemMemories searches item memories.
func (r *Repository) RetrieveItemMemories(ctx context.Context, query string, filter Filter, k int) ([]model.Hit, error) {
	return r.Retrieve(ctx, model.KindItem, query, filter, k)
}

// IngestSessionTranscript splits a long narrative passage into chunks and
// saves each as a session memory with a "chunk" index. On failure the ids
// written so far are returned with the error.
func (r *Repository) IngestSessionTranscript(ctx context.Context, sessionID, text string, extra model.Metadata) ([]string, error) {
	chunks := chunker.Chunk(text, r.chunk)
	if len(chunks) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidRecord, "transcript is empty", goerr.V("session_id", sessionID))
	}

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		meta := make(model.Metadata, len(extra)+1)
		for k, v := range extra {
			meta[k] = v
		}
		meta["chunk"] = c.Index

		id, err := r.SaveSessionMemory(ctx, sessionID, c.Text, meta)
		if err != nil {
			return ids, goerr.Wrap(err, "ingest transcript", goerr.V("chunk", c.Index))
		}
		ids = append(ids, id)
	}
	logging.From(ctx).Info("transcript ingested",
		slog.String("session_id", sessionID), slog.Int("chunks", len(ids)))
	return ids, nil
}
