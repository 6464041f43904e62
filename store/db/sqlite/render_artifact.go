package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/store"
)

func (d *DB) UpsertRenderArtifact(ctx context.Context, upsert *store.UpsertRenderArtifact) (*store.RenderArtifact, error) {
	// Idempotent by content hash: re-writing the same hash keeps the
	// original row.
	stmt := `
		INSERT INTO render_artifact (content_hash, artifact_ref, created_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (content_hash) DO UPDATE SET
			artifact_ref = EXCLUDED.artifact_ref`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ContentHash, upsert.ArtifactRef, upsert.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert render artifact")
	}

	return &store.RenderArtifact{
		ContentHash: upsert.ContentHash,
		ArtifactRef: upsert.ArtifactRef,
		CreatedTs:   upsert.CreatedTs,
	}, nil
}

func (d *DB) GetRenderArtifact(ctx context.Context, find *store.FindRenderArtifact) (*store.RenderArtifact, error) {
	if find.ContentHash == nil {
		return nil, errors.New("content hash is required")
	}

	var artifact store.RenderArtifact
	err := d.db.QueryRowContext(ctx,
		"SELECT content_hash, artifact_ref, created_ts FROM render_artifact WHERE content_hash = ?",
		*find.ContentHash,
	).Scan(&artifact.ContentHash, &artifact.ArtifactRef, &artifact.CreatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get render artifact")
	}

	return &artifact, nil
}

func (d *DB) DeleteRenderArtifact(ctx context.Context, delete *store.DeleteRenderArtifact) error {
	if _, err := d.db.ExecContext(ctx,
		"DELETE FROM render_artifact WHERE content_hash = ?", delete.ContentHash,
	); err != nil {
		return errors.Wrap(err, "failed to delete render artifact")
	}
	return nil
}
