// Package session runs quiz sessions: it draws an ordered, non-repeating
// question sequence from hybrid priority signals and fans answer outcomes
// back into the mastery and review trackers.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/Kevin-nav/AskTheSage/internal/observability"
	"github.com/Kevin-nav/AskTheSage/store"
)

// State is the session lifecycle state.
type State string

const (
	// StateEmpty is a created session with no question drawn yet.
	StateEmpty State = "EMPTY"
	// StateInProgress is a session with at least one question drawn.
	StateInProgress State = "IN_PROGRESS"
	// StateCompleted is terminal: the target length was reached or the
	// eligible pool ran out.
	StateCompleted State = "COMPLETED"
	// StateAbandoned is terminal: explicit cancellation, idle timeout, or
	// a storage failure mid-answer.
	StateAbandoned State = "ABANDONED"
)

// Terminal reports whether the state accepts no further operations.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// Session is one learner's active quiz. It is owned by a single logical
// flow; the mutex only guards against the idle sweeper running concurrently
// with that flow.
type Session struct {
	ID           string
	UserID       int64
	CourseID     int32
	TargetLength int
	StartTime    time.Time

	mu           sync.Mutex
	state        State
	presented    []int32
	presentedSet map[int32]bool
	topicCounts  map[string]int
	current      *store.Question
	seed         int64
	lastActivity time.Time
	answered     int
	correct      int
	log          *observability.SessionContext
}

func newSession(userID int64, courseID int32, targetLength int, seed int64, now time.Time) *Session {
	id := shortuuid.New()
	return &Session{
		ID:           id,
		UserID:       userID,
		CourseID:     courseID,
		TargetLength: targetLength,
		StartTime:    now,
		state:        StateEmpty,
		presentedSet: make(map[int32]bool),
		topicCounts:  make(map[string]int),
		seed:         seed,
		lastActivity: now,
		log:          observability.NewSessionContext(slog.Default(), id, userID),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Presented returns the ids drawn so far, in presentation order.
func (s *Session) Presented() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int32, len(s.presented))
	copy(out, s.presented)
	return out
}

// Progress returns answered and correct counts.
func (s *Session) Progress() (answered, correct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered, s.correct
}
