package chunker

import (
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	if result := Chunk("   \n ", DefaultOptions()); result != nil {
		t.Errorf("expected nil, got %v", result)
	}
}

func TestChunk_ShortContent(t *testing.T) {
	text := "Grak slams the tavern door."
	result := Chunk(text, DefaultOptions())
	if len(result) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(result))
	}
	if result[0].Text != text || result[0].Index != 0 {
		t.Errorf("unexpected chunk %+v", result[0])
	}
}

func TestChunk_SplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("The rain hammers the old bridge. ", 10) // ~330 chars
	text := para + "\n\n" + para + "\n\n" + para

	result := Chunk(text, DefaultOptions())
	if len(result) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(result))
	}
	for i, c := range result {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if len(c.Text) > DefaultMaxSize {
			t.Errorf("chunk %d exceeds max size: %d", i, len(c.Text))
		}
	}
}

func TestChunk_MergesSmallParagraphs(t *testing.T) {
	opts := Options{TargetSize: 100, MaxSize: 120}
	text := "Grak waves.\n\nMira nods.\n\nOren frowns.\n\n" + strings.Repeat("x", 110)

	result := Chunk(text, opts)
	if len(result) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(result), result)
	}
	if result[0].Text != "Grak waves. Mira nods. Oren frowns." {
		t.Errorf("unexpected first chunk %q", result[0].Text)
	}
}

func TestChunk_SplitsLongParagraphOnSentences(t *testing.T) {
	opts := Options{TargetSize: 60, MaxSize: 80}
	text := "The gate groans open. A cold wind rushes through the gap! Who opened it? " +
		"Nobody in the village will say. The guards look away."

	result := Chunk(text, opts)
	if len(result) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(result))
	}
	for _, c := range result {
		if len(c.Text) > opts.MaxSize {
			t.Errorf("chunk exceeds max size: %q", c.Text)
		}
		last := c.Text[len(c.Text)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("chunk does not end on a sentence boundary: %q", c.Text)
		}
	}
}

func TestChunk_SplitsRunOnSentenceOnWords(t *testing.T) {
	opts := Options{TargetSize: 50, MaxSize: 60}
	text := strings.TrimSpace(strings.Repeat("onward ", 40))

	result := Chunk(text, opts)
	if len(result) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(result))
	}
	var words int
	for _, c := range result {
		if len(c.Text) > opts.TargetSize {
			t.Errorf("chunk exceeds target size: %d", len(c.Text))
		}
		words += len(strings.Fields(c.Text))
	}
	if words != 40 {
		t.Errorf("expected 40 words across chunks, got %d", words)
	}
}

func TestChunk_InvalidOptionsUseDefaults(t *testing.T) {
	text := strings.Repeat("word ", 50)
	result := Chunk(text, Options{})
	if len(result) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(result))
	}
}

func TestSentences(t *testing.T) {
	got := sentences("Does Grak trust us? No. Not after the bridge...")
	want := []string{"Does Grak trust us?", "No.", "Not after the bridge..."}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
