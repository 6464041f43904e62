package store

// RenderArtifact is the durable-tier index entry: content hash to artifact
// reference. Shared across all users and sessions; lifetime independent of
// any session. Entries are permanent until explicitly invalidated by a
// content-hash change.
type RenderArtifact struct {
	ContentHash string
	ArtifactRef string
	CreatedTs   int64
}

// FindRenderArtifact is the find condition for render artifact.
type FindRenderArtifact struct {
	ContentHash *string
}

// UpsertRenderArtifact is the upsert request for render artifact.
// Re-writing the same hash with the same reference is a no-op.
type UpsertRenderArtifact struct {
	ContentHash string
	ArtifactRef string
	CreatedTs   int64
}

// DeleteRenderArtifact is the delete request for render artifact.
type DeleteRenderArtifact struct {
	ContentHash string
}
