package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const indexFileName = "index.json"

// Entry is one revision's record in a slug index. It carries enough of the
// provenance to verify hash chains and decide staleness without opening the
// artifact document itself.
type Entry struct {
	Revision    int        `json:"revision"`
	CreatedAt   time.Time  `json:"created_at"`
	PayloadHash string     `json:"payload_hash"`
	InputHash   string     `json:"input_hash"`
	Stage       string     `json:"stage"`
	Provider    string     `json:"provider,omitempty"`
	Mode        Mode       `json:"mode"`
	RunID       string     `json:"run_id,omitempty"`
	Inputs      []InputRef `json:"inputs,omitempty"`
	Stale       bool       `json:"stale,omitempty"`
}

// Index is the per-slug sidecar tracking every revision of every kind.
type Index struct {
	Slug      string            `json:"slug"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[Kind][]*Entry `json:"entries"`
}

// NewIndex returns an empty index for a slug.
func NewIndex(slug string) *Index {
	return &Index{Slug: slug, Entries: make(map[Kind][]*Entry)}
}

// Latest returns the highest-revision entry for a kind, or nil.
func (ix *Index) Latest(kind Kind) *Entry {
	entries := ix.Entries[kind]
	if len(entries) == 0 {
		return nil
	}
	return entries[len(entries)-1]
}

// Entry returns the entry for an exact revision, or nil.
func (ix *Index) Entry(kind Kind, revision int) *Entry {
	for _, e := range ix.Entries[kind] {
		if e.Revision == revision {
			return e
		}
	}
	return nil
}

// NextRevision returns the revision number the next Put of kind receives.
func (ix *Index) NextRevision(kind Kind) int {
	if latest := ix.Latest(kind); latest != nil {
		return latest.Revision + 1
	}
	return 1
}

func (ix *Index) append(kind Kind, e *Entry) {
	ix.Entries[kind] = append(ix.Entries[kind], e)
	sort.Slice(ix.Entries[kind], func(i, j int) bool {
		return ix.Entries[kind][i].Revision < ix.Entries[kind][j].Revision
	})
}

// readIndex loads the slug's index. A missing file yields a fresh index so
// first writes need no special casing.
func (s *Store) readIndex(slug string) (*Index, error) {
	path := filepath.Join(s.slugDir(slug), indexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewIndex(slug), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if ix.Entries == nil {
		ix.Entries = make(map[Kind][]*Entry)
	}
	return &ix, nil
}

func (s *Store) writeIndex(ix *Index) error {
	ix.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	path := filepath.Join(s.slugDir(ix.Slug), indexFileName)
	return atomicWrite(path, data)
}
