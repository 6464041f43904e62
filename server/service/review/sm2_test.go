package review

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Kevin-nav/AskTheSage/store"
)

func freshStat() *store.UserQuestionStat {
	return &store.UserQuestionStat{
		UserID:     1,
		QuestionID: 1,
		EaseFactor: DefaultEaseFactor,
	}
}

func TestApplyPerfectSequence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stat := freshStat()

	stat = Apply(stat, 5, now)
	assert.Equal(t, 1, stat.IntervalDays)
	assert.Equal(t, 1, stat.Streak)

	stat = Apply(stat, 5, now)
	assert.Equal(t, 6, stat.IntervalDays)
	assert.Equal(t, 2, stat.Streak)

	stat = Apply(stat, 5, now)
	assert.Equal(t, 15, stat.IntervalDays)
	assert.Equal(t, 3, stat.Streak)
}

func TestApplyLapseResets(t *testing.T) {
	now := time.Now()
	stat := freshStat()
	for i := 0; i < 3; i++ {
		stat = Apply(stat, 5, now)
	}
	assert.Equal(t, 3, stat.Streak)

	stat = Apply(stat, 2, now)
	assert.Equal(t, 0, stat.Streak)
	assert.Equal(t, 1, stat.IntervalDays)
}

func TestApplyEaseFactorFloor(t *testing.T) {
	now := time.Now()
	stat := freshStat()

	for i := 0; i < 20; i++ {
		stat = Apply(stat, 0, now)
	}
	assert.Equal(t, MinEaseFactor, stat.EaseFactor)
}

func TestApplyIntervalNeverBelowOneDay(t *testing.T) {
	now := time.Now()
	stat := freshStat()
	stat.IntervalDays = 0

	// Early reviews and lapses alike must leave at least a one-day gap.
	for _, quality := range []int{3, 0, 3, 3} {
		stat = Apply(stat, quality, now)
		assert.GreaterOrEqual(t, stat.IntervalDays, 1)
	}
}

func TestApplyDueTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stat := Apply(freshStat(), 5, now)

	assert.Equal(t, now.Unix(), stat.LastSeenTs)
	assert.Equal(t, now.Add(24*time.Hour).Unix(), stat.DueTs)
}

func TestApplyQualityClamped(t *testing.T) {
	now := time.Now()

	lapsed := Apply(freshStat(), -3, now)
	assert.Equal(t, 0, lapsed.Streak)

	perfect := Apply(freshStat(), 99, now)
	assert.Equal(t, 1, perfect.Streak)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	stat := freshStat()
	Apply(stat, 5, time.Now())

	assert.Equal(t, 0, stat.Streak)
	assert.Equal(t, 0, stat.IntervalDays)
}

func TestApplyZeroEaseFactorDefaults(t *testing.T) {
	stat := &store.UserQuestionStat{UserID: 1, QuestionID: 1}
	updated := Apply(stat, 4, time.Now())
	assert.Equal(t, DefaultEaseFactor, updated.EaseFactor)
}

func TestQualityDeterministic(t *testing.T) {
	limit := 60 * time.Second
	tests := []struct {
		name     string
		correct  bool
		latency  time.Duration
		expected int
	}{
		{"correct fast", true, 10 * time.Second, 5},
		{"correct middle", true, 30 * time.Second, 4},
		{"correct slow", true, 55 * time.Second, 3},
		{"wrong fast", false, 10 * time.Second, 2},
		{"wrong middle", false, 30 * time.Second, 1},
		{"wrong slow", false, 55 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quality(tt.correct, tt.latency, limit)
			assert.Equal(t, tt.expected, got)
			// Same inputs, same quality.
			assert.Equal(t, got, Quality(tt.correct, tt.latency, limit))
		})
	}
}

func TestQualityZeroLimitUsesDefault(t *testing.T) {
	assert.Equal(t, 5, Quality(true, 10*time.Second, 0))
}

func TestQualityClampsGarbageLatency(t *testing.T) {
	limit := 60 * time.Second

	// A negative latency is treated as instantaneous, not faster.
	assert.Equal(t, 5, Quality(true, -time.Second, limit))
	assert.Equal(t, 2, Quality(false, -time.Second, limit))

	// An absurdly large latency must land in the slowest bucket instead of
	// overflowing the bucket arithmetic.
	huge := time.Duration(math.MaxInt64)
	assert.Equal(t, 3, Quality(true, huge, limit))
	assert.Equal(t, 0, Quality(false, huge, limit))
}

func TestTimeLimitScalesWithDifficulty(t *testing.T) {
	assert.Equal(t, 60*time.Second, TimeLimit(0.2))
	assert.Equal(t, 90*time.Second, TimeLimit(0.5))
	assert.Equal(t, 120*time.Second, TimeLimit(0.9))
}
