// Package review schedules question repetitions with an SM-2 style
// interval model.
package review

import (
	"context"
	"time"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/store"
)

// Store is the persistence surface the clock needs.
type Store interface {
	UpsertUserQuestionStat(ctx context.Context, upsert *store.UpsertUserQuestionStat) (*store.UserQuestionStat, error)
	ListUserQuestionStats(ctx context.Context, find *store.FindUserQuestionStat) ([]*store.UserQuestionStat, error)
}

// Clock records reviews and computes due schedules per user and question.
type Clock struct {
	store Store
	now   func() time.Time
}

// NewClock creates a review clock.
func NewClock(s Store) *Clock {
	return &Clock{store: s, now: time.Now}
}

// RecordReview folds one answer into the question's repetition state and
// persists the result. A question never seen before starts from the default
// ease factor.
func (c *Clock) RecordReview(ctx context.Context, userID int64, questionID int32, correct bool, latency, timeLimit time.Duration) (*store.UserQuestionStat, error) {
	stat, err := c.Get(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		stat = &store.UserQuestionStat{
			UserID:     userID,
			QuestionID: questionID,
			EaseFactor: DefaultEaseFactor,
		}
	}

	quality := Quality(correct, latency, timeLimit)
	updated := Apply(stat, quality, c.now())

	persisted, err := c.store.UpsertUserQuestionStat(ctx, &store.UpsertUserQuestionStat{
		UserID:       updated.UserID,
		QuestionID:   updated.QuestionID,
		EaseFactor:   updated.EaseFactor,
		IntervalDays: updated.IntervalDays,
		DueTs:        updated.DueTs,
		Streak:       updated.Streak,
		LastSeenTs:   updated.LastSeenTs,
	})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to persist review state", err)
	}
	return persisted, nil
}

// Restore writes a previously-read repetition state back verbatim. Used to
// roll back a review when a later write in the same answer fails, so no
// half-recorded answer survives.
func (c *Clock) Restore(ctx context.Context, stat *store.UserQuestionStat) error {
	_, err := c.store.UpsertUserQuestionStat(ctx, &store.UpsertUserQuestionStat{
		UserID:       stat.UserID,
		QuestionID:   stat.QuestionID,
		EaseFactor:   stat.EaseFactor,
		IntervalDays: stat.IntervalDays,
		DueTs:        stat.DueTs,
		Streak:       stat.Streak,
		LastSeenTs:   stat.LastSeenTs,
	})
	if err != nil {
		return qerrors.StoreUnavailable("failed to restore review state", err)
	}
	return nil
}

// Get returns the repetition state for a (user, question) pair, or nil when
// the question was never reviewed.
func (c *Clock) Get(ctx context.Context, userID int64, questionID int32) (*store.UserQuestionStat, error) {
	list, err := c.store.ListUserQuestionStats(ctx, &store.FindUserQuestionStat{
		UserID:     &userID,
		QuestionID: &questionID,
	})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to look up review state", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// StatsByQuestion returns the user's repetition state for a course, keyed by
// question id. Questions never reviewed are absent from the map.
func (c *Clock) StatsByQuestion(ctx context.Context, userID int64, courseID int32) (map[int32]*store.UserQuestionStat, error) {
	list, err := c.store.ListUserQuestionStats(ctx, &store.FindUserQuestionStat{
		UserID:   &userID,
		CourseID: &courseID,
	})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list review state", err)
	}
	result := make(map[int32]*store.UserQuestionStat, len(list))
	for _, stat := range list {
		result[stat.QuestionID] = stat
	}
	return result, nil
}

// AllStats returns every repetition record of one user.
func (c *Clock) AllStats(ctx context.Context, userID int64) ([]*store.UserQuestionStat, error) {
	list, err := c.store.ListUserQuestionStats(ctx, &store.FindUserQuestionStat{UserID: &userID})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list review state", err)
	}
	return list, nil
}

// DueStats returns the user's stats that are due at or before now.
func (c *Clock) DueStats(ctx context.Context, userID int64) ([]*store.UserQuestionStat, error) {
	now := c.now().Unix()
	list, err := c.store.ListUserQuestionStats(ctx, &store.FindUserQuestionStat{
		UserID:    &userID,
		DueBefore: &now,
	})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list due reviews", err)
	}
	return list, nil
}
