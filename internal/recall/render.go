package recall

import (
	"fmt"
	"strings"
)

const (
	// Header opens a non-empty context block.
	Header = "Relevant memories:"
	// NoRelevantMemories is returned when no kind produced an entry.
	NoRelevantMemories = "No relevant memories."
)

// Render formats entries one per line as "- [kind] text" or
// "- [kind: Name] text" under Header.
func Render(entries []Entry) string {
	if len(entries) == 0 {
		return NoRelevantMemories
	}

	var b strings.Builder
	b.WriteString(Header)
	for _, e := range entries {
		b.WriteByte('\n')
		if e.Name != "" {
			fmt.Fprintf(&b, "- [%s: %s] %s", e.Kind, e.Name, oneLine(e.Text))
		} else {
			fmt.Fprintf(&b, "- [%s] %s", e.Kind, oneLine(e.Text))
		}
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
