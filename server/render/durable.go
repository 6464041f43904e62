package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/store"
)

// DurableStore is the persistent tier of the render cache. Writes are
// idempotent: putting the same hash again returns the existing reference.
type DurableStore interface {
	// Put persists artifact bytes and returns a stable reference.
	Put(ctx context.Context, hash string, data []byte) (string, error)
	// Get returns the artifact reference for a hash, or "" if absent.
	Get(ctx context.Context, hash string) (string, error)
	// Exists reports whether an artifact is stored for the hash.
	Exists(ctx context.Context, hash string) (bool, error)
	// Delete removes the artifact for a hash. Used only for explicit
	// invalidation on content change.
	Delete(ctx context.Context, hash string) error
}

// LocalDiskStore stores artifacts as PNG files under
// <root>/rendered-cache/<hash>.png. References are absolute file paths.
type LocalDiskStore struct {
	root string
}

// NewLocalDiskStore creates the cache directory if needed.
func NewLocalDiskStore(root string) (*LocalDiskStore, error) {
	dir := filepath.Join(root, "rendered-cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create artifact directory %q", dir)
	}
	return &LocalDiskStore{root: dir}, nil
}

func (s *LocalDiskStore) artifactPath(hash string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s.png", hash))
}

func (s *LocalDiskStore) Put(_ context.Context, hash string, data []byte) (string, error) {
	path := s.artifactPath(hash)

	// Idempotent: content addressing means an existing file already holds
	// these bytes.
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	// Write to a temp file and rename so no reader observes a partial
	// artifact.
	tmp, err := os.CreateTemp(s.root, fmt.Sprintf(".%s-*", hash))
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp artifact file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to close artifact file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to move artifact into place")
	}

	return path, nil
}

func (s *LocalDiskStore) Get(_ context.Context, hash string) (string, error) {
	path := s.artifactPath(hash)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to stat artifact %q", path)
	}
	return path, nil
}

func (s *LocalDiskStore) Exists(ctx context.Context, hash string) (bool, error) {
	ref, err := s.Get(ctx, hash)
	if err != nil {
		return false, err
	}
	return ref != "", nil
}

func (s *LocalDiskStore) Delete(_ context.Context, hash string) error {
	if err := os.Remove(s.artifactPath(hash)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete artifact")
	}
	return nil
}

// IndexedStore wraps a DurableStore and mirrors its references into the
// relational render_artifact index, so lookups avoid touching the blob
// store and other processes can resolve references.
type IndexedStore struct {
	inner DurableStore
	store *store.Store
}

// NewIndexedStore creates an indexed durable store.
func NewIndexedStore(inner DurableStore, s *store.Store) *IndexedStore {
	return &IndexedStore{inner: inner, store: s}
}

func (s *IndexedStore) Put(ctx context.Context, hash string, data []byte) (string, error) {
	ref, err := s.inner.Put(ctx, hash, data)
	if err != nil {
		return "", err
	}
	if _, err := s.store.UpsertRenderArtifact(ctx, &store.UpsertRenderArtifact{
		ContentHash: hash,
		ArtifactRef: ref,
		CreatedTs:   time.Now().Unix(),
	}); err != nil {
		return "", errors.Wrap(err, "failed to index render artifact")
	}
	return ref, nil
}

func (s *IndexedStore) Get(ctx context.Context, hash string) (string, error) {
	artifact, err := s.store.GetRenderArtifact(ctx, &store.FindRenderArtifact{ContentHash: &hash})
	if err != nil {
		return "", errors.Wrap(err, "failed to look up render artifact index")
	}
	if artifact != nil {
		return artifact.ArtifactRef, nil
	}
	// Fall back to the blob store; repair the index on a hit.
	ref, err := s.inner.Get(ctx, hash)
	if err != nil || ref == "" {
		return ref, err
	}
	if _, err := s.store.UpsertRenderArtifact(ctx, &store.UpsertRenderArtifact{
		ContentHash: hash,
		ArtifactRef: ref,
		CreatedTs:   time.Now().Unix(),
	}); err != nil {
		return "", errors.Wrap(err, "failed to repair render artifact index")
	}
	return ref, nil
}

func (s *IndexedStore) Exists(ctx context.Context, hash string) (bool, error) {
	ref, err := s.Get(ctx, hash)
	if err != nil {
		return false, err
	}
	return ref != "", nil
}

func (s *IndexedStore) Delete(ctx context.Context, hash string) error {
	if err := s.store.DeleteRenderArtifact(ctx, &store.DeleteRenderArtifact{ContentHash: hash}); err != nil {
		return errors.Wrap(err, "failed to delete render artifact index entry")
	}
	return s.inner.Delete(ctx, hash)
}
