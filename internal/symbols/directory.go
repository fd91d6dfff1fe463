package symbols

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry is one selectable symbol.
type Entry struct {
	Value string `json:"value"` // Symbol sent to the feed
	Text  string `json:"text"`  // Display label
}

// Directory is an immutable set of entries, safe for concurrent reads.
type Directory struct {
	entries []Entry
	byValue map[string]int
}

// NewDirectory builds a directory. Later duplicates of a value are dropped.
func NewDirectory(entries []Entry) *Directory {
	d := &Directory{
		entries: make([]Entry, 0, len(entries)),
		byValue: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Value == "" {
			continue
		}
		if _, dup := d.byValue[e.Value]; dup {
			continue
		}
		d.byValue[e.Value] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d
}

// Parse reads a JSON array of entries.
func Parse(r io.Reader) (*Directory, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode symbol list: %w", err)
	}
	return NewDirectory(entries), nil
}

// Load reads a symbol list file.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol list: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Lookup returns the entry with exactly this value.
func (d *Directory) Lookup(value string) (Entry, bool) {
	i, ok := d.byValue[value]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Search returns up to limit entries whose value or text contains query,
// ignoring case. Exact value matches come first, then value prefixes, then
// the rest in directory order. limit <= 0 means no limit.
func (d *Directory) Search(query string, limit int) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type hit struct {
		rank  int
		index int
	}
	var hits []hit
	for i, e := range d.entries {
		value := strings.ToLower(e.Value)
		switch {
		case value == q:
			hits = append(hits, hit{0, i})
		case strings.HasPrefix(value, q):
			hits = append(hits, hit{1, i})
		case strings.Contains(value, q) || strings.Contains(strings.ToLower(e.Text), q):
			hits = append(hits, hit{2, i})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].rank < hits[b].rank
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Entry, len(hits))
	for i, h := range hits {
		out[i] = d.entries[h.index]
	}
	return out
}
