package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultHashDims is the vector size of the hash embedder when none is configured.
const DefaultHashDims = 512

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "to": true, "and": true,
	"or": true, "is": true, "are": true, "was": true, "in": true, "on": true,
	"at": true, "it": true, "for": true, "with": true, "by": true, "as": true,
}

// HashEmbedder is a local feature-hashing bag-of-words encoder. It needs no
// network and is deterministic, which makes it the default for offline play
// and tests. Similarity reflects shared words, not meaning.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder producing vectors of the given size.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDims
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err, "hash")
	}
	tokens := features(text)
	vec := make(Vector, e.dims)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := h % uint64(e.dims)
		if h&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// every token cancelled out; fall back to unsigned counts
		for _, tok := range tokens {
			vec[xxhash.Sum64String(tok)%uint64(e.dims)]++
		}
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (e *HashEmbedder) Dims() int { return e.dims }

// features returns the tokens hashed for text. Text made only of stopwords
// keeps them, and text with no words at all is hashed whole. Blank text has
// no features and embeds to the zero vector.
func features(text string) []string {
	if tokens := Tokenize(text); len(tokens) > 0 {
		return tokens
	}
	if ws := words(text); len(ws) > 0 {
		return ws
	}
	if t := strings.ToLower(strings.TrimSpace(text)); t != "" {
		return []string{t}
	}
	return nil
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize lowercases text and splits it into words, dropping stopwords.
func Tokenize(text string) []string {
	fields := words(text)
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
