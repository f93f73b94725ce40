package clinicsearch

import (
	"context"
	"strings"
)

// MemoryIndex ranks names by prefix, then word prefix, then substring.
type MemoryIndex struct {
	names  []string
	folded []string
}

func NewMemoryIndex(names []string) *MemoryIndex {
	idx := &MemoryIndex{names: names, folded: make([]string, len(names))}
	for i, n := range names {
		idx.folded[i] = Fold(n)
	}
	return idx
}

func (m *MemoryIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	q := Fold(query)
	if q == "" {
		return head(m.names, limit), nil
	}

	var prefix, word, contains []string
	for i, f := range m.folded {
		switch {
		case strings.HasPrefix(f, q):
			prefix = append(prefix, m.names[i])
		case strings.Contains(f, " "+q):
			word = append(word, m.names[i])
		case strings.Contains(f, q):
			contains = append(contains, m.names[i])
		}
	}

	out := append(append(prefix, word...), contains...)
	return head(out, limit), nil
}

func head(names []string, limit int) []string {
	if limit <= 0 || len(names) <= limit {
		return append([]string(nil), names...)
	}
	return append([]string(nil), names[:limit]...)
}
