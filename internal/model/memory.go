// Package model defines the core memory data types.
package model

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oklog/ulid/v2"
)

// Kind is the entity kind a memory belongs to. Each kind has its own collection.
type Kind string

const (
	KindSession  Kind = "session"
	KindNPC      Kind = "npc"
	KindLocation Kind = "location"
	KindItem     Kind = "item"
)

// Kinds lists every kind in context priority order.
var Kinds = []Kind{KindSession, KindNPC, KindLocation, KindItem}

// MetaType is the metadata key holding the record kind.
const MetaType = "type"

// ParseKind resolves a kind name. Plural collection names ("npcs") are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "session", "sessions":
		return KindSession, nil
	case "npc", "npcs":
		return KindNPC, nil
	case "location", "locations":
		return KindLocation, nil
	case "item", "items":
		return KindItem, nil
	}
	return "", goerr.Wrap(ErrUnknownCollection, "unknown kind", goerr.V("kind", s))
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSession, KindNPC, KindLocation, KindItem:
		return true
	}
	return false
}

// IDField is the metadata key holding the entity's natural id.
func (k Kind) IDField() string {
	return string(k) + "_id"
}

// NameField is the metadata key holding the entity's display name.
// Sessions have no name.
func (k Kind) NameField() string {
	if k == KindSession {
		return ""
	}
	return string(k) + "_name"
}

// Reserved reports whether key is owned by the repository for this kind.
func (k Kind) Reserved(key string) bool {
	return key == MetaType || key == k.IDField() || (key != "" && key == k.NameField())
}

// Record is one stored memory fragment.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      Kind      `json:"kind" yaml:"kind"`
	Seq       int64     `json:"seq" yaml:"seq"`
	Text      string    `json:"text" yaml:"text"`
	Vector    []float32 `json:"vector,omitempty" yaml:"vector,omitempty,flow"`
	Metadata  Metadata  `json:"metadata" yaml:"metadata"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NaturalID returns the entity id stored in the record's metadata.
func (r Record) NaturalID() string {
	s, _ := r.Metadata[r.Kind.IDField()].(string)
	return s
}

// Name returns the entity name stored in the record's metadata, if any.
func (r Record) Name() string {
	if r.Kind.NameField() == "" {
		return ""
	}
	s, _ := r.Metadata[r.Kind.NameField()].(string)
	return s
}

// Hit is a record returned from a similarity query.
// Score is the cosine similarity to the query vector.
type Hit struct {
	Record
	Score float64 `json:"score"`
}

// NewSessionID returns a fresh, time-sortable session id.
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
