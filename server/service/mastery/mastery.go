// Package mastery maintains per-user, per-topic mastery estimates updated
// after every answered question.
package mastery

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/store"
)

const (
	// DefaultAlpha is the smoothing constant of the moving average.
	DefaultAlpha = 0.2
	// NeutralPrior seeds a topic on first exposure. Starting from the
	// midpoint avoids a cold-start bias toward or against the topic.
	NeutralPrior = 0.5
)

// Store is the persistence surface the tracker needs.
type Store interface {
	UpsertTopicMastery(ctx context.Context, upsert *store.UpsertTopicMastery) (*store.TopicMastery, error)
	ListTopicMasteries(ctx context.Context, find *store.FindTopicMastery) ([]*store.TopicMastery, error)
}

// Tracker computes exponential-moving-average mastery per (user, topic).
type Tracker struct {
	store Store
	alpha float64

	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

// NewTracker creates a tracker. An alpha outside (0, 1) falls back to the
// default.
func NewTracker(s Store, alpha float64) *Tracker {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &Tracker{
		store: s,
		alpha: alpha,
		users: make(map[int64]*sync.Mutex),
	}
}

// userLock returns the per-user mutex, creating it on first use. Locking is
// per user so unrelated learners never contend.
func (t *Tracker) userLock(userID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		t.users[userID] = lock
	}
	return lock
}

// RecordAnswer folds one answer into the topic's mastery estimate.
func (t *Tracker) RecordAnswer(ctx context.Context, userID int64, topic string, correct bool) (*store.TopicMastery, error) {
	if topic == "" {
		return nil, errors.New("topic must not be empty")
	}

	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current, err := t.get(ctx, userID, topic)
	if err != nil {
		return nil, err
	}

	masteryScore := NeutralPrior
	samples := 0
	if current != nil {
		masteryScore = current.Mastery
		samples = current.Samples
	}

	outcome := 0.0
	if correct {
		outcome = 1.0
	}
	masteryScore += t.alpha * (outcome - masteryScore)

	updated, err := t.store.UpsertTopicMastery(ctx, &store.UpsertTopicMastery{
		UserID:    userID,
		Topic:     topic,
		Mastery:   masteryScore,
		Samples:   samples + 1,
		UpdatedTs: time.Now().Unix(),
	})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to persist topic mastery", err)
	}
	return updated, nil
}

// Weakness returns 1 - mastery for the topic. Topics never attempted report
// the maximum weakness so coverage is biased toward unexplored material.
func (t *Tracker) Weakness(ctx context.Context, userID int64, topic string) (float64, error) {
	current, err := t.get(ctx, userID, topic)
	if err != nil {
		return 0, err
	}
	if current == nil {
		return 1.0, nil
	}
	return 1.0 - current.Mastery, nil
}

// Weaknesses returns the weakness of every listed topic in one store round
// trip. Topics absent from the result were never attempted.
func (t *Tracker) Weaknesses(ctx context.Context, userID int64, topics []string) (map[string]float64, error) {
	list, err := t.store.ListTopicMasteries(ctx, &store.FindTopicMastery{UserID: &userID})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list topic masteries", err)
	}

	known := make(map[string]float64, len(list))
	for _, m := range list {
		known[m.Topic] = 1.0 - m.Mastery
	}

	result := make(map[string]float64, len(topics))
	for _, topic := range topics {
		if w, ok := known[topic]; ok {
			result[topic] = w
		} else {
			result[topic] = 1.0
		}
	}
	return result, nil
}

func (t *Tracker) get(ctx context.Context, userID int64, topic string) (*store.TopicMastery, error) {
	list, err := t.store.ListTopicMasteries(ctx, &store.FindTopicMastery{
		UserID: &userID,
		Topic:  &topic,
	})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to look up topic mastery", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
