package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Subdirectories of the store root.
const (
	storeDirName    = "store"
	researchDirName = "research"
	imagesDirName   = "images"
	markdownDirName = "markdown"
)

// Mirror is an optional write-through replica of the local store. Put
// failures on the mirror are logged, never fatal: the local directory is the
// source of truth.
type Mirror interface {
	Put(ctx context.Context, art *Artifact) error
	Get(ctx context.Context, slug string, kind Kind, revision int) (*Artifact, error)
	Latest(ctx context.Context, slug string, kind Kind) (*Artifact, error)
}

// Store persists artifacts under a local directory tree:
//
//	<root>/store/<slug>/<kind>.<revision>.json
//	<root>/store/<slug>/index.json
//	<root>/research/<slug>-<kind>.json   (latest view, research kinds)
//	<root>/images/<slug>-images.json     (latest view, image sets)
//
// All writes are atomic (temp file + rename) and index updates are
// serialized by a per-slug advisory lock.
type Store struct {
	root   string
	logger *slog.Logger
	locks  *slugLocks
	mirror Mirror
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for store operations.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMirror attaches a remote mirror. Writes go through to it; reads fall
// back to it when the local tree has no copy.
func WithMirror(m Mirror) StoreOption {
	return func(s *Store) {
		s.mirror = m
	}
}

// NewStore creates a store rooted at dir, creating the directory tree as
// needed.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store root must not be empty")
	}
	s := &Store{
		root:   dir,
		logger: slog.Default(),
		locks:  newSlugLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sub := range []string{storeDirName, researchDirName, imagesDirName, markdownDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// SlugDir returns the per-slug store directory. Stage-owned sidecars such as
// prompt records live beneath it.
func (s *Store) SlugDir(slug string) string {
	return s.slugDir(slug)
}

func (s *Store) slugDir(slug string) string {
	return filepath.Join(s.root, storeDirName, slug)
}

func (s *Store) artifactPath(slug string, kind Kind, revision int) string {
	return filepath.Join(s.slugDir(slug), fmt.Sprintf("%s.%d.json", kind, revision))
}

// Put writes a new revision for (slug, kind) and returns the stored
// artifact. The payload is canonicalized before hashing so that equal
// documents always produce equal payload hashes.
func (s *Store) Put(ctx context.Context, slug string, kind Kind, payload any, prov Provenance) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if slug == "" {
		return nil, storeErr("put", slug, kind, fmt.Errorf("empty slug"))
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return nil, storeErr("put", slug, kind, err)
	}

	release, err := s.lockSlug(ctx, slug)
	if err != nil {
		return nil, storeErr("put", slug, kind, err)
	}
	defer release()

	ix, err := s.readIndex(slug)
	if err != nil {
		return nil, storeErr("put", slug, kind, err)
	}

	art := &Artifact{
		Slug:       slug,
		Kind:       kind,
		Revision:   ix.NextRevision(kind),
		CreatedAt:  time.Now().UTC(),
		Provenance: prov,
		Payload:    json.RawMessage(canonical),
	}

	doc, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return nil, storeErr("put", slug, kind, err)
	}
	if err := atomicWrite(s.artifactPath(slug, kind, art.Revision), doc); err != nil {
		return nil, storeErr("put", slug, kind, err)
	}

	ix.append(kind, &Entry{
		Revision:    art.Revision,
		CreatedAt:   art.CreatedAt,
		PayloadHash: HashBytes(art.Payload),
		InputHash:   prov.InputHash,
		Stage:       prov.Stage,
		Provider:    prov.Provider,
		Mode:        prov.Mode,
		RunID:       prov.RunID,
		Inputs:      prov.Inputs,
	})
	if err := s.writeIndex(ix); err != nil {
		return nil, storeErr("put", slug, kind, err)
	}

	if err := s.exportFlat(slug, kind, canonical); err != nil {
		return nil, storeErr("put", slug, kind, err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, art); err != nil {
			s.logger.Warn("mirror write failed",
				"slug", slug,
				"kind", kind,
				"revision", art.Revision,
				"error", err)
		}
	}

	s.logger.Debug("stored artifact",
		"slug", slug,
		"kind", kind,
		"revision", art.Revision,
		"mode", prov.Mode)
	return art, nil
}

// Get returns an exact revision. Reads fall back from the local tree to the
// mirror before reporting ErrNotFound.
func (s *Store) Get(ctx context.Context, slug string, kind Kind, revision int) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	art, err := s.readArtifact(slug, kind, revision)
	if err == nil {
		s.applyStale(slug, art)
		return art, nil
	}
	if !os.IsNotExist(err) {
		return nil, storeErr("get", slug, kind, err)
	}

	if s.mirror != nil {
		if art, mErr := s.mirror.Get(ctx, slug, kind, revision); mErr == nil {
			return art, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s.%d", ErrNotFound, slug, kind, revision)
}

// Latest returns the highest revision of (slug, kind) whose provenance hash
// chain is intact. Revisions whose payload no longer matches the recorded
// hash, or whose inputs no longer match theirs, are skipped so that a
// corrupted cache entry forces re-execution instead of poisoning downstream
// stages.
func (s *Store) Latest(ctx context.Context, slug string, kind Kind) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	ix, err := s.readIndex(slug)
	if err != nil {
		return nil, storeErr("get-latest", slug, kind, err)
	}

	entries := ix.Entries[kind]
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		art, err := s.readArtifact(slug, kind, e.Revision)
		if err != nil {
			s.logger.Warn("artifact unreadable, trying earlier revision",
				"slug", slug, "kind", kind, "revision", e.Revision, "error", err)
			continue
		}
		if !s.chainIntact(ix, e, art) {
			s.logger.Warn("artifact hash chain broken, trying earlier revision",
				"slug", slug, "kind", kind, "revision", e.Revision)
			continue
		}
		art.Stale = e.Stale
		return art, nil
	}

	if s.mirror != nil {
		if art, mErr := s.mirror.Latest(ctx, slug, kind); mErr == nil {
			return art, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, slug, kind)
}

// chainIntact verifies that the payload still matches the indexed hash and
// that every recorded input still matches the hash it had at derivation
// time.
func (s *Store) chainIntact(ix *Index, e *Entry, art *Artifact) bool {
	if HashBytes(art.Payload) != e.PayloadHash {
		return false
	}
	for _, ref := range e.Inputs {
		upstream := ix.Entry(ref.Kind, ref.Revision)
		if upstream == nil || upstream.PayloadHash != ref.Hash {
			return false
		}
	}
	return true
}

// InvalidateDownstream marks every artifact whose provenance chain includes
// an artifact of the given kind as stale. Nothing is deleted; stale entries
// remain readable but signal the orchestrator to re-execute their stage. The
// count of newly stale entries is returned.
func (s *Store) InvalidateDownstream(ctx context.Context, slug string, kind Kind) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	release, err := s.lockSlug(ctx, slug)
	if err != nil {
		return 0, storeErr("invalidate", slug, kind, err)
	}
	defer release()

	ix, err := s.readIndex(slug)
	if err != nil {
		return 0, storeErr("invalidate", slug, kind, err)
	}

	tainted := map[Kind]bool{kind: true}
	marked := 0
	for changed := true; changed; {
		changed = false
		for _, k := range kindOrder {
			for _, e := range ix.Entries[k] {
				if e.Stale {
					continue
				}
				for _, ref := range e.Inputs {
					if tainted[ref.Kind] {
						e.Stale = true
						tainted[k] = true
						marked++
						changed = true
						break
					}
				}
			}
		}
	}

	if marked == 0 {
		return 0, nil
	}
	if err := s.writeIndex(ix); err != nil {
		return 0, storeErr("invalidate", slug, kind, err)
	}
	s.logger.Info("invalidated downstream artifacts",
		"slug", slug, "kind", kind, "marked", marked)
	return marked, nil
}

// Index returns the slug's index. Missing slugs yield an empty index.
func (s *Store) Index(ctx context.Context, slug string) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	ix, err := s.readIndex(slug)
	if err != nil {
		return nil, storeErr("index", slug, "", err)
	}
	return ix, nil
}

// Slugs lists every slug with artifacts in the local tree, sorted.
func (s *Store) Slugs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	entries, err := os.ReadDir(filepath.Join(s.root, storeDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, storeErr("list", "", "", err)
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() {
			slugs = append(slugs, e.Name())
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// Delete removes artifacts for a slug. With no kinds it removes the whole
// slug directory and every flat view; with kinds it removes only those
// kinds' revisions and index entries. Deletion is an explicit administrative
// action, never part of normal pipeline flow.
func (s *Store) Delete(ctx context.Context, slug string, kinds ...Kind) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	release, err := s.lockSlug(ctx, slug)
	if err != nil {
		return 0, storeErr("delete", slug, "", err)
	}

	if len(kinds) == 0 {
		ix, err := s.readIndex(slug)
		if err != nil {
			release()
			return 0, storeErr("delete", slug, "", err)
		}
		removed := 0
		for _, entries := range ix.Entries {
			removed += len(entries)
		}
		for k := range researchKinds {
			os.Remove(s.flatResearchPath(slug, k))
		}
		os.Remove(s.flatImagesPath(slug))
		os.Remove(filepath.Join(s.root, imagesDirName, slug+"-image.json"))
		os.Remove(s.flatMarkdownPath(slug))
		release()
		if err := os.RemoveAll(s.slugDir(slug)); err != nil {
			return 0, storeErr("delete", slug, "", err)
		}
		return removed, nil
	}

	defer release()
	ix, err := s.readIndex(slug)
	if err != nil {
		return 0, storeErr("delete", slug, "", err)
	}
	removed := 0
	for _, kind := range kinds {
		if !kind.Valid() {
			return removed, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
		}
		for _, e := range ix.Entries[kind] {
			if err := os.Remove(s.artifactPath(slug, kind, e.Revision)); err != nil && !os.IsNotExist(err) {
				return removed, storeErr("delete", slug, kind, err)
			}
			removed++
		}
		delete(ix.Entries, kind)
		if kind.IsResearch() {
			os.Remove(s.flatResearchPath(slug, kind))
		}
		if kind == KindImageSet {
			os.Remove(s.flatImagesPath(slug))
		}
	}
	if err := s.writeIndex(ix); err != nil {
		return removed, storeErr("delete", slug, "", err)
	}
	return removed, nil
}

// WriteJSON writes an arbitrary JSON document under the store root using the
// same atomic discipline as artifact writes. relPath is slash-separated and
// relative to the root.
func (s *Store) WriteJSON(ctx context.Context, relPath string, v any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return storeErr("write", relPath, "", err)
	}
	path := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return storeErr("write", relPath, "", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return storeErr("write", relPath, "", err)
	}
	return nil
}

func (s *Store) readArtifact(slug string, kind Kind, revision int) (*Artifact, error) {
	data, err := os.ReadFile(s.artifactPath(slug, kind, revision))
	if err != nil {
		return nil, err
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	return &art, nil
}

// applyStale copies the index staleness marker onto a freshly read artifact.
func (s *Store) applyStale(slug string, art *Artifact) {
	ix, err := s.readIndex(slug)
	if err != nil {
		return
	}
	if e := ix.Entry(art.Kind, art.Revision); e != nil {
		art.Stale = e.Stale
	}
}

func (s *Store) flatResearchPath(slug string, kind Kind) string {
	return filepath.Join(s.root, researchDirName, fmt.Sprintf("%s-%s.json", slug, kind))
}

func (s *Store) flatImagesPath(slug string) string {
	return filepath.Join(s.root, imagesDirName, slug+"-images.json")
}

func (s *Store) flatMarkdownPath(slug string) string {
	return filepath.Join(s.root, markdownDirName, slug+".md")
}

// ExportMarkdown writes the rendered article to the flat markdown view at
// markdown/<slug>.md under the store root, atomically like every other
// store write.
func (s *Store) ExportMarkdown(ctx context.Context, slug string, rendered []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := atomicWrite(s.flatMarkdownPath(slug), rendered); err != nil {
		return storeErr("export", slug, "", err)
	}
	return nil
}

// exportFlat maintains the latest-view files external consumers read:
// research payloads under research/ and image sets under images/.
func (s *Store) exportFlat(slug string, kind Kind, canonical []byte) error {
	var path string
	switch {
	case kind.IsResearch():
		path = s.flatResearchPath(slug, kind)
	case kind == KindImageSet:
		path = s.flatImagesPath(slug)
	default:
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, canonical, "", "  "); err != nil {
		return fmt.Errorf("format flat view: %w", err)
	}
	return atomicWrite(path, pretty.Bytes())
}

// atomicWrite writes data to path via a temp file in the same directory plus
// rename, so readers never observe a partial document.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(path), ".json")+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
