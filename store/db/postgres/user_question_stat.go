package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/store"
)

func (d *DB) UpsertUserQuestionStat(ctx context.Context, upsert *store.UpsertUserQuestionStat) (*store.UserQuestionStat, error) {
	stmt := `
		INSERT INTO user_question_stat (user_id, question_id, ease_factor, interval_days, due_ts, streak, last_seen_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			due_ts = EXCLUDED.due_ts,
			streak = EXCLUDED.streak,
			last_seen_ts = EXCLUDED.last_seen_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.QuestionID, upsert.EaseFactor,
		upsert.IntervalDays, upsert.DueTs, upsert.Streak, upsert.LastSeenTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert user question stat")
	}

	return &store.UserQuestionStat{
		UserID:       upsert.UserID,
		QuestionID:   upsert.QuestionID,
		EaseFactor:   upsert.EaseFactor,
		IntervalDays: upsert.IntervalDays,
		DueTs:        upsert.DueTs,
		Streak:       upsert.Streak,
		LastSeenTs:   upsert.LastSeenTs,
	}, nil
}

func (d *DB) ListUserQuestionStats(ctx context.Context, find *store.FindUserQuestionStat) ([]*store.UserQuestionStat, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_question_stat.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.QuestionID; v != nil {
		where, args = append(where, "user_question_stat.question_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBefore; v != nil {
		where, args = append(where, "user_question_stat.due_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	join := ""
	if v := find.CourseID; v != nil {
		join = "JOIN question ON question.id = user_question_stat.question_id"
		where, args = append(where, "question.course_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT user_question_stat.user_id, user_question_stat.question_id,
			user_question_stat.ease_factor, user_question_stat.interval_days,
			user_question_stat.due_ts, user_question_stat.streak, user_question_stat.last_seen_ts
		FROM user_question_stat ` + join + `
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY user_question_stat.question_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user question stats")
	}
	defer rows.Close()

	list := make([]*store.UserQuestionStat, 0)
	for rows.Next() {
		var stat store.UserQuestionStat
		if err := rows.Scan(
			&stat.UserID,
			&stat.QuestionID,
			&stat.EaseFactor,
			&stat.IntervalDays,
			&stat.DueTs,
			&stat.Streak,
			&stat.LastSeenTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user question stat")
		}
		list = append(list, &stat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate user question stats")
	}

	return list, nil
}
