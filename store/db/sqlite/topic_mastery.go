package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/store"
)

func (d *DB) UpsertTopicMastery(ctx context.Context, upsert *store.UpsertTopicMastery) (*store.TopicMastery, error) {
	stmt := `
		INSERT INTO topic_mastery (user_id, topic, mastery, samples, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, topic) DO UPDATE SET
			mastery = EXCLUDED.mastery,
			samples = EXCLUDED.samples,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.Topic, upsert.Mastery, upsert.Samples, upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert topic mastery")
	}

	return &store.TopicMastery{
		UserID:    upsert.UserID,
		Topic:     upsert.Topic,
		Mastery:   upsert.Mastery,
		Samples:   upsert.Samples,
		UpdatedTs: upsert.UpdatedTs,
	}, nil
}

func (d *DB) ListTopicMasteries(ctx context.Context, find *store.FindTopicMastery) ([]*store.TopicMastery, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "topic_mastery.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Topic; v != nil {
		where, args = append(where, "topic_mastery.topic = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT user_id, topic, mastery, samples, updated_ts
		FROM topic_mastery
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY topic_mastery.topic ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query topic masteries")
	}
	defer rows.Close()

	list := make([]*store.TopicMastery, 0)
	for rows.Next() {
		var mastery store.TopicMastery
		if err := rows.Scan(
			&mastery.UserID,
			&mastery.Topic,
			&mastery.Mastery,
			&mastery.Samples,
			&mastery.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan topic mastery")
		}
		list = append(list, &mastery)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate topic masteries")
	}

	return list, nil
}
