package review

import (
	"time"

	"github.com/Kevin-nav/AskTheSage/store"
)

const (
	// DefaultEaseFactor is the starting multiplier for new items.
	DefaultEaseFactor = 2.5
	// MinEaseFactor floors the multiplier so intervals never collapse.
	MinEaseFactor = 1.3
	// MaxQuality is the top of the recall quality scale.
	MaxQuality = 5

	// easeDelta is the per-quality adjustment step above the lapse
	// threshold. Quality 4 leaves the ease factor unchanged, 5 raises it,
	// 3 lowers it.
	easeDelta = 0.05
	// lapseEasePenalty is subtracted from the ease factor on a lapse.
	lapseEasePenalty = 0.2
)

// Apply folds one review into the spaced-repetition state and returns the
// updated copy. The input is not mutated.
//
// Quality below 3 is a lapse: the streak and interval reset and the ease
// factor takes a penalty. Quality 3 and up grows the interval on the classic
// 1, 6, then interval times ease-factor ladder. Intervals never drop below
// one day, so an early review cannot shrink the schedule.
func Apply(stat *store.UserQuestionStat, quality int, now time.Time) *store.UserQuestionStat {
	if quality < 0 {
		quality = 0
	}
	if quality > MaxQuality {
		quality = MaxQuality
	}

	next := *stat
	if next.EaseFactor == 0 {
		next.EaseFactor = DefaultEaseFactor
	}

	if quality < 3 {
		next.Streak = 0
		next.IntervalDays = 1
		next.EaseFactor -= lapseEasePenalty
	} else {
		next.Streak++
		next.EaseFactor += easeDelta * float64(quality-4)
		switch next.Streak {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(float64(next.IntervalDays) * next.EaseFactor)
		}
	}

	if next.EaseFactor < MinEaseFactor {
		next.EaseFactor = MinEaseFactor
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}

	next.LastSeenTs = now.Unix()
	next.DueTs = now.Add(time.Duration(next.IntervalDays) * 24 * time.Hour).Unix()
	return &next
}

// Quality derives the 0..5 recall quality from correctness and how much of
// the allotted time the answer took. The mapping is deterministic so the
// same answer under the same conditions always scores the same.
//
//	correct, fast    -> 5 (perfect recall)
//	correct, middle  -> 4
//	correct, slow    -> 3
//	wrong, fast      -> 2 (confident mistake)
//	wrong, middle    -> 1
//	wrong, slow      -> 0 (blackout)
func Quality(correct bool, latency, timeLimit time.Duration) int {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	// Latency comes from the client unvalidated. Clamp it to the answer
	// window so the bucket arithmetic cannot overflow and garbage values
	// map to the boundary buckets.
	if latency < 0 {
		latency = 0
	}
	if latency > timeLimit {
		latency = timeLimit
	}
	bucket := 2
	if latency*3 <= timeLimit {
		bucket = 0
	} else if latency*3 <= 2*timeLimit {
		bucket = 1
	}

	if correct {
		return 5 - bucket
	}
	return 2 - bucket
}

// DefaultTimeLimit applies when a question carries no difficulty score.
const DefaultTimeLimit = 60 * time.Second

// TimeLimit scales the answer window by question difficulty. Difficulty is
// in [0, 1]; harder questions get proportionally more time.
func TimeLimit(difficulty float64) time.Duration {
	multiplier := 2.0
	switch {
	case difficulty <= 0:
		multiplier = 1.0
	case difficulty <= 0.33:
		multiplier = 1.0
	case difficulty <= 0.66:
		multiplier = 1.5
	}
	return time.Duration(float64(DefaultTimeLimit) * multiplier)
}
