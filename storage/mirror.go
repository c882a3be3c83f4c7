// Package storage mirrors pipeline artifacts into NATS JetStream KV so
// other machines can serve content this one generated.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/draftforge/draftforge/artifact"
)

// BucketArtifacts is the KV bucket holding mirrored artifacts.
const BucketArtifacts = "DRAFTFORGE_ARTIFACTS"

// KVMirror is a write-through replica of the local artifact store. The
// local directory stays the source of truth; the store logs mirror
// failures and carries on.
type KVMirror struct {
	kv jetstream.KeyValue
}

var _ artifact.Mirror = (*KVMirror)(nil)

// NewKVMirror binds the artifact bucket on the given JetStream context.
// It creates the bucket if it doesn't exist.
func NewKVMirror(ctx context.Context, js jetstream.JetStream) (*KVMirror, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketArtifacts)
	if err != nil {
		return nil, fmt.Errorf("create artifact bucket: %w", err)
	}
	return &KVMirror{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Draftforge artifact mirror",
		History:     5, // Keep last 5 revisions
	})
}

// Keys are "<slug>.<kind>.<revision>" plus a "<slug>.<kind>.latest"
// pointer. Slugs and kinds only contain [a-z0-9-], so the dots are
// unambiguous and every key is valid for NATS KV.
func revisionKey(slug string, kind artifact.Kind, revision int) string {
	return fmt.Sprintf("%s.%s.%d", slug, kind, revision)
}

func latestKey(slug string, kind artifact.Kind) string {
	return fmt.Sprintf("%s.%s.latest", slug, kind)
}

// Put stores the artifact under its revision key and advances the latest
// pointer for its slug and kind.
func (m *KVMirror) Put(ctx context.Context, art *artifact.Artifact) error {
	data, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	if _, err := m.kv.Put(ctx, revisionKey(art.Slug, art.Kind, art.Revision), data); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}

	if _, err := m.kv.Put(ctx, latestKey(art.Slug, art.Kind), data); err != nil {
		return fmt.Errorf("store latest pointer: %w", err)
	}

	return nil
}

// Get retrieves an exact mirrored revision.
func (m *KVMirror) Get(ctx context.Context, slug string, kind artifact.Kind, revision int) (*artifact.Artifact, error) {
	return m.read(ctx, revisionKey(slug, kind, revision))
}

// Latest retrieves the most recently mirrored revision for the slug and
// kind.
func (m *KVMirror) Latest(ctx context.Context, slug string, kind artifact.Kind) (*artifact.Artifact, error) {
	return m.read(ctx, latestKey(slug, kind))
}

func (m *KVMirror) read(ctx context.Context, key string) (*artifact.Artifact, error) {
	entry, err := m.kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, artifact.ErrNotFound
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}

	var art artifact.Artifact
	if err := json.Unmarshal(entry.Value(), &art); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}

	return &art, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
