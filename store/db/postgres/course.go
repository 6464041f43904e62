package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/store"
)

func (d *DB) CreateCourse(ctx context.Context, create *store.Course) (*store.Course, error) {
	fields := []string{"name", "description"}
	placeholderValues := []any{create.Name, create.Description}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO course (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create course")
	}

	return create, nil
}

func (d *DB) ListCourses(ctx context.Context, find *store.FindCourse) ([]*store.Course, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "course.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Name; v != nil {
		where, args = append(where, "course.name = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, name, description, created_ts
		FROM course
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY course.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query courses")
	}
	defer rows.Close()

	list := make([]*store.Course, 0)
	for rows.Next() {
		var course store.Course
		if err := rows.Scan(
			&course.ID,
			&course.Name,
			&course.Description,
			&course.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan course")
		}
		list = append(list, &course)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate courses")
	}

	return list, nil
}

func (d *DB) DeleteCourse(ctx context.Context, delete *store.DeleteCourse) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM course WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete course")
	}
	return nil
}
