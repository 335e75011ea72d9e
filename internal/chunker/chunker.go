// Package chunker splits long narrative text into memory-sized passages.
package chunker

import (
	"strings"
	"unicode"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// Options configures chunking behavior. Sizes are in bytes.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// ChunkResult is one passage and its position among the passages.
type ChunkResult struct {
	Index int
	Text  string
}

// Chunk splits text into passages. Text no longer than MaxSize is returned as
// a single passage. Otherwise paragraphs are packed up to TargetSize, and a
// paragraph over MaxSize is broken on sentence boundaries, then on words.
func Chunk(text string, opts Options) []ChunkResult {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}
	if opts.TargetSize > opts.MaxSize {
		opts.TargetSize = opts.MaxSize
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []ChunkResult{{Index: 0, Text: text}}
	}

	var pieces []string
	for _, p := range paragraphs(text) {
		if len(p) <= opts.MaxSize {
			pieces = append(pieces, p)
			continue
		}
		for _, s := range sentences(p) {
			if len(s) <= opts.MaxSize {
				pieces = append(pieces, s)
			} else {
				pieces = append(pieces, splitWords(s, opts.TargetSize)...)
			}
		}
	}

	return pack(pieces, opts)
}

// paragraphs splits on blank lines and joins wrapped lines with spaces.
func paragraphs(text string) []string {
	var out []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}

// sentences splits after '.', '!' or '?' followed by whitespace.
func sentences(p string) []string {
	var out []string
	start := 0
	runes := []rune(p)
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// splitWords breaks text on whitespace into runs of at most size bytes.
// A single word longer than size becomes its own run.
func splitWords(text string, size int) []string {
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(text) {
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// pack joins consecutive pieces while the result stays within TargetSize.
func pack(pieces []string, opts Options) []ChunkResult {
	var results []ChunkResult
	var accum string

	flush := func() {
		if accum == "" {
			return
		}
		results = append(results, ChunkResult{Index: len(results), Text: accum})
		accum = ""
	}

	for _, p := range pieces {
		if accum == "" {
			accum = p
			continue
		}
		combined := accum + " " + p
		if len(combined) <= opts.TargetSize {
			accum = combined
		} else {
			flush()
			accum = p
		}
	}
	flush()
	return results
}
