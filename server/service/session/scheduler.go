package session

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/internal/observability"
	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/server/service/mastery"
	"github.com/Kevin-nav/AskTheSage/server/service/review"
	"github.com/Kevin-nav/AskTheSage/store"
)

// ErrExhausted signals that no eligible question remains. The session has
// transitioned to Completed.
var ErrExhausted = errors.New("no eligible question remains")

// Config holds the scheduling policy parameters. The weights are policy,
// not structure, so they come from configuration rather than being fixed.
// Weight fields are pointers so an explicit zero (disable the signal) is
// distinguishable from unset (take the default).
type Config struct {
	// WeightDue scales the overdue-review signal (default: 1.0).
	WeightDue *float64
	// WeightWeakness scales the topic-weakness signal (default: 0.8).
	WeightWeakness *float64
	// WeightCoverage scales the in-session coverage deficit (default: 0.5).
	WeightCoverage *float64
	// WeightJitter bounds the pseudo-random perturbation (default: 0.1).
	WeightJitter *float64
	// DefaultTargetLength applies when a session is started without one.
	DefaultTargetLength int
	// IdleTimeout abandons sessions with no activity (default: 30m).
	IdleTimeout time.Duration
}

// weights is the resolved scoring policy.
type weights struct {
	due      float64
	weakness float64
	coverage float64
	jitter   float64
}

func (c Config) resolveWeights() weights {
	w := weights{due: 1.0, weakness: 0.8, coverage: 0.5, jitter: 0.1}
	if c.WeightDue != nil {
		w.due = *c.WeightDue
	}
	if c.WeightWeakness != nil {
		w.weakness = *c.WeightWeakness
	}
	if c.WeightCoverage != nil {
		w.coverage = *c.WeightCoverage
	}
	if c.WeightJitter != nil {
		w.jitter = *c.WeightJitter
	}
	return w
}

func (c Config) withDefaults() Config {
	if c.DefaultTargetLength <= 0 {
		c.DefaultTargetLength = 10
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	return c
}

// QuestionStore is the question-listing surface the scheduler needs.
type QuestionStore interface {
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
}

// Scheduler owns all active sessions and draws questions for them.
type Scheduler struct {
	store   QuestionStore
	mastery *mastery.Tracker
	clock   *review.Clock
	config  Config
	weights weights
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewScheduler creates a scheduler over the given trackers.
func NewScheduler(s QuestionStore, tracker *mastery.Tracker, clock *review.Clock, config Config) *Scheduler {
	return &Scheduler{
		store:    s,
		mastery:  tracker,
		clock:    clock,
		config:   config.withDefaults(),
		weights:  config.resolveWeights(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start creates a session for the user over one course. A zero seed draws
// one from the clock; a fixed seed makes the jitter reproducible.
func (s *Scheduler) Start(ctx context.Context, userID int64, courseID int32, targetLength int, seed int64) (*Session, error) {
	if targetLength <= 0 {
		targetLength = s.config.DefaultTargetLength
	}
	now := s.now()
	if seed == 0 {
		seed = now.UnixNano()
	}

	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{CourseID: &courseID})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list course questions", err)
	}
	if len(questions) == 0 {
		return nil, errors.Errorf("course %d has no questions", courseID)
	}
	if targetLength > len(questions) {
		targetLength = len(questions)
	}

	sess := newSession(userID, courseID, targetLength, seed, now)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	sess.log.Info("session started",
		slog.Int64(observability.LogFieldCourseID, int64(courseID)),
		slog.Int("target_length", targetLength),
	)
	return sess, nil
}

// Get returns an active session by id.
func (s *Scheduler) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, qerrors.SessionState("session not found")
	}
	return sess, nil
}

// NextQuestion draws the highest-priority eligible question. A question
// drawn once is never drawn again within the session. When the target
// length is reached or the pool runs out, the session completes and
// ErrExhausted is returned.
func (s *Scheduler) NextQuestion(ctx context.Context, sessionID string) (*store.Question, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Terminal() {
		return nil, qerrors.SessionState("session already ended")
	}
	if sess.current != nil {
		return nil, qerrors.SessionState("previous question has no recorded outcome")
	}
	if len(sess.presented) >= sess.TargetLength {
		sess.state = StateCompleted
		s.drop(sess.ID)
		return nil, ErrExhausted
	}

	eligible, err := s.eligibleQuestions(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		sess.state = StateCompleted
		s.drop(sess.ID)
		return nil, ErrExhausted
	}

	question, err := s.pick(ctx, sess, eligible)
	if err != nil {
		return nil, err
	}

	sess.state = StateInProgress
	sess.current = question
	sess.presented = append(sess.presented, question.ID)
	sess.presentedSet[question.ID] = true
	sess.topicCounts[question.Topic]++
	sess.lastActivity = s.now()
	return question, nil
}

// Current returns the in-flight question, or nil when the last drawn
// question already has a recorded outcome.
func (s *Scheduler) Current(sessionID string) (*store.Question, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.current, nil
}

// RecordOutcome records the answer to the in-flight question, updating the
// mastery and review trackers. A storage failure abandons the session and
// rolls the review write back so no partial update survives.
func (s *Scheduler) RecordOutcome(ctx context.Context, sessionID string, questionID int32, correct bool, latency time.Duration) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateInProgress {
		return qerrors.SessionState("session is not in progress")
	}
	if sess.current == nil || sess.current.ID != questionID {
		return qerrors.SessionState("question is not the in-flight question")
	}
	question := sess.current

	prior, err := s.clock.Get(ctx, sess.UserID, questionID)
	if err != nil {
		s.abandonLocked(sess)
		return err
	}

	timeLimit := review.TimeLimit(question.Difficulty)
	if _, err := s.clock.RecordReview(ctx, sess.UserID, questionID, correct, latency, timeLimit); err != nil {
		s.abandonLocked(sess)
		return err
	}
	if _, err := s.mastery.RecordAnswer(ctx, sess.UserID, question.Topic, correct); err != nil {
		// Undo the review write so this answer leaves no trace. A first
		// exposure has no prior row, so it rolls back to a fresh state.
		if prior == nil {
			prior = &store.UserQuestionStat{
				UserID:     sess.UserID,
				QuestionID: questionID,
				EaseFactor: review.DefaultEaseFactor,
			}
		}
		if restoreErr := s.clock.Restore(ctx, prior); restoreErr != nil {
			sess.log.Error("failed to roll back review state", restoreErr,
				slog.Int64(observability.LogFieldQuestionID, int64(questionID)),
			)
		}
		s.abandonLocked(sess)
		return err
	}

	sess.current = nil
	sess.answered++
	if correct {
		sess.correct++
	}
	sess.lastActivity = s.now()

	if sess.answered >= sess.TargetLength {
		sess.state = StateCompleted
		s.drop(sess.ID)
		sess.log.Info("session completed",
			slog.Int("answered", sess.answered),
			slog.Int("correct", sess.correct),
			slog.Int64(observability.LogFieldDuration, sess.log.DurationMs()),
		)
	}
	return nil
}

// Abandon terminates a session explicitly. Outcomes already recorded are
// untouched.
func (s *Scheduler) Abandon(sessionID string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state.Terminal() {
		return qerrors.SessionState("session already ended")
	}
	s.abandonLocked(sess)
	return nil
}

// AbandonIdle abandons sessions idle past the configured timeout and
// returns how many were ended. Meant to run on a ticker.
func (s *Scheduler) AbandonIdle() int {
	cutoff := s.now().Add(-s.config.IdleTimeout)

	s.mu.RLock()
	var idle []*Session
	for _, sess := range s.sessions {
		idle = append(idle, sess)
	}
	s.mu.RUnlock()

	n := 0
	for _, sess := range idle {
		sess.mu.Lock()
		if !sess.state.Terminal() && sess.lastActivity.Before(cutoff) {
			s.abandonLocked(sess)
			n++
		}
		sess.mu.Unlock()
	}
	return n
}

func (s *Scheduler) abandonLocked(sess *Session) {
	sess.state = StateAbandoned
	s.drop(sess.ID)
	sess.log.Info("session abandoned",
		slog.Int("answered", sess.answered),
		slog.Int64(observability.LogFieldDuration, sess.log.DurationMs()),
	)
}

func (s *Scheduler) drop(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *Scheduler) eligibleQuestions(ctx context.Context, sess *Session) ([]*store.Question, error) {
	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{CourseID: &sess.CourseID})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list course questions", err)
	}

	eligible := questions[:0]
	for _, q := range questions {
		if !sess.presentedSet[q.ID] {
			eligible = append(eligible, q)
		}
	}
	return eligible, nil
}

// pick scores every eligible question and returns the best. Ties break
// toward the lowest question id: candidates are visited in ascending id
// order and only a strictly greater score displaces the leader.
func (s *Scheduler) pick(ctx context.Context, sess *Session, eligible []*store.Question) (*store.Question, error) {
	stats, err := s.clock.StatsByQuestion(ctx, sess.UserID, sess.CourseID)
	if err != nil {
		return nil, err
	}

	topicSet := make(map[string]bool)
	for _, q := range eligible {
		topicSet[q.Topic] = true
	}
	topics := make([]string, 0, len(topicSet))
	for topic := range topicSet {
		topics = append(topics, topic)
	}
	weaknesses, err := s.mastery.Weaknesses(ctx, sess.UserID, topics)
	if err != nil {
		return nil, err
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	// The jitter stream is deterministic given the session seed and how
	// many draws happened so far.
	rng := rand.New(rand.NewSource(sess.seed + int64(len(sess.presented))))
	now := s.now()

	var best *store.Question
	bestScore := -1.0
	for _, q := range eligible {
		score := s.weights.due*overdueFactor(stats[q.ID], now) +
			s.weights.weakness*weaknesses[q.Topic] +
			s.weights.coverage*coverageDeficit(sess.topicCounts[q.Topic]) +
			s.weights.jitter*rng.Float64()
		if score > bestScore {
			best = q
			bestScore = score
		}
	}
	return best, nil
}

// overdueFactor is 0 for questions not yet due and grows linearly with
// days overdue, saturating at 1 after five days so far-overdue reviews
// outrank everything else without growing unboundedly.
func overdueFactor(stat *store.UserQuestionStat, now time.Time) float64 {
	if stat == nil || stat.DueTs == 0 || stat.DueTs > now.Unix() {
		return 0
	}
	daysOverdue := float64(now.Unix()-stat.DueTs) / (24 * 60 * 60)
	factor := daysOverdue * 0.2
	if factor > 1 {
		factor = 1
	}
	return factor
}

// coverageDeficit favors topics with fewer questions presented this
// session: 1 for untouched topics, shrinking with each presentation.
func coverageDeficit(presentedInTopic int) float64 {
	return 1.0 / float64(1+presentedInTopic)
}
