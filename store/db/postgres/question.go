package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/store"
)

func (d *DB) CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error) {
	optionsJSON, err := json.Marshal(create.Options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal options")
	}

	fields := []string{"uid", "course_id", "topic", "text", "options", "answer_index", "explanation", "difficulty", "content_hash"}
	placeholderValues := []any{
		create.UID, create.CourseID, create.Topic, create.Text, string(optionsJSON),
		create.AnswerIndex, create.Explanation, create.Difficulty, create.ContentHash,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO question (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create question")
	}

	return create, nil
}

func (d *DB) ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "question.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "question.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CourseID; v != nil {
		where, args = append(where, "question.course_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Topic; v != nil {
		where, args = append(where, "question.topic = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ContentHash; v != nil {
		where, args = append(where, "question.content_hash = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, course_id, topic, text, options, answer_index, explanation, difficulty, content_hash, created_ts, updated_ts
		FROM question
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY question.id ASC`

	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query questions")
	}
	defer rows.Close()

	list := make([]*store.Question, 0)
	for rows.Next() {
		var question store.Question
		var optionsJSON string
		if err := rows.Scan(
			&question.ID,
			&question.UID,
			&question.CourseID,
			&question.Topic,
			&question.Text,
			&optionsJSON,
			&question.AnswerIndex,
			&question.Explanation,
			&question.Difficulty,
			&question.ContentHash,
			&question.CreatedTs,
			&question.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan question")
		}
		if err := json.Unmarshal([]byte(optionsJSON), &question.Options); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal options for question %d", question.ID)
		}
		list = append(list, &question)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate questions")
	}

	return list, nil
}

func (d *DB) UpdateQuestion(ctx context.Context, update *store.UpdateQuestion) error {
	set, args := []string{}, []any{}

	if v := update.Topic; v != nil {
		set, args = append(set, "topic = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Explanation; v != nil {
		set, args = append(set, "explanation = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Difficulty; v != nil {
		set, args = append(set, "difficulty = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	stmt := `UPDATE question SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)+1)
	args = append(args, update.ID)

	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update question")
	}
	return nil
}

func (d *DB) DeleteQuestions(ctx context.Context, delete *store.DeleteQuestion) (int, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := delete.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.CourseID; v != nil {
		where, args = append(where, "course_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(where) == 1 {
		return 0, errors.New("refusing to delete questions without a filter")
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM question WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete questions")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return int(n), nil
}
