package mastery

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/store"
)

// fakeMasteryStore keeps topic mastery in a map keyed by (user, topic).
type fakeMasteryStore struct {
	mu      sync.Mutex
	rows    map[int64]map[string]*store.TopicMastery
	failing bool
}

func newFakeMasteryStore() *fakeMasteryStore {
	return &fakeMasteryStore{rows: make(map[int64]map[string]*store.TopicMastery)}
}

func (f *fakeMasteryStore) UpsertTopicMastery(_ context.Context, upsert *store.UpsertTopicMastery) (*store.TopicMastery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("connection refused")
	}
	if f.rows[upsert.UserID] == nil {
		f.rows[upsert.UserID] = make(map[string]*store.TopicMastery)
	}
	row := &store.TopicMastery{
		UserID:    upsert.UserID,
		Topic:     upsert.Topic,
		Mastery:   upsert.Mastery,
		Samples:   upsert.Samples,
		UpdatedTs: upsert.UpdatedTs,
	}
	f.rows[upsert.UserID][upsert.Topic] = row
	return row, nil
}

func (f *fakeMasteryStore) ListTopicMasteries(_ context.Context, find *store.FindTopicMastery) ([]*store.TopicMastery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("connection refused")
	}
	var result []*store.TopicMastery
	for userID, topics := range f.rows {
		if find.UserID != nil && *find.UserID != userID {
			continue
		}
		for topic, row := range topics {
			if find.Topic != nil && *find.Topic != topic {
				continue
			}
			result = append(result, row)
		}
	}
	return result, nil
}

func TestRecordAnswerFirstExposure(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	// Neutral prior 0.5, one correct answer at alpha 0.2 lands on 0.6.
	m, err := tracker.RecordAnswer(ctx, 1, "calculus", true)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, m.Mastery, 1e-9)
	assert.Equal(t, 1, m.Samples)
}

func TestRecordAnswerIncorrectLowersMastery(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	m, err := tracker.RecordAnswer(ctx, 1, "calculus", false)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, m.Mastery, 1e-9)
}

func TestRecordAnswerConverges(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	var m *store.TopicMastery
	var err error
	for i := 0; i < 50; i++ {
		m, err = tracker.RecordAnswer(ctx, 1, "algebra", true)
		require.NoError(t, err)
	}
	assert.Greater(t, m.Mastery, 0.99, "repeated correct answers converge toward 1")
	assert.Equal(t, 50, m.Samples)
}

func TestRecordAnswerEmptyTopic(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)

	_, err := tracker.RecordAnswer(context.Background(), 1, "", true)
	assert.Error(t, err)
}

func TestWeaknessUnattemptedTopic(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)

	w, err := tracker.Weakness(context.Background(), 1, "never-studied")
	require.NoError(t, err)
	assert.Equal(t, 1.0, w)
}

func TestWeaknessTracksMastery(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	_, err := tracker.RecordAnswer(ctx, 1, "calculus", true)
	require.NoError(t, err)

	w, err := tracker.Weakness(ctx, 1, "calculus")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, w, 1e-9)
}

func TestWeaknessesBatch(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	_, err := tracker.RecordAnswer(ctx, 1, "calculus", true)
	require.NoError(t, err)

	weaknesses, err := tracker.Weaknesses(ctx, 1, []string{"calculus", "statistics"})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, weaknesses["calculus"], 1e-9)
	assert.Equal(t, 1.0, weaknesses["statistics"])
}

func TestUsersAreIndependent(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	_, err := tracker.RecordAnswer(ctx, 1, "calculus", true)
	require.NoError(t, err)

	w, err := tracker.Weakness(ctx, 2, "calculus")
	require.NoError(t, err)
	assert.Equal(t, 1.0, w, "another user's answers must not leak")
}

func TestRecordAnswerStoreUnavailable(t *testing.T) {
	fake := newFakeMasteryStore()
	fake.failing = true
	tracker := NewTracker(fake, 0.2)

	_, err := tracker.RecordAnswer(context.Background(), 1, "calculus", true)
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeStoreUnavailable))
}

func TestRecordAnswerConcurrentSameUser(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0.2)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.RecordAnswer(ctx, 1, "calculus", true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := tracker.Weaknesses(ctx, 1, []string{"calculus"})
	require.NoError(t, err)
	// The per-user lock serializes updates, so every answer is folded in.
	assert.Less(t, list["calculus"], 0.5)
}

func TestNewTrackerAlphaFallback(t *testing.T) {
	tracker := NewTracker(newFakeMasteryStore(), 0)
	assert.Equal(t, DefaultAlpha, tracker.alpha)

	tracker = NewTracker(newFakeMasteryStore(), 1.5)
	assert.Equal(t, DefaultAlpha, tracker.alpha)
}
