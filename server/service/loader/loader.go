// Package loader reconciles external question sets against the store,
// keyed by content hash within a course scope.
package loader

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/server/render"
	"github.com/Kevin-nav/AskTheSage/store"
)

// Store is the persistence surface the loader needs.
type Store interface {
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
	CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error)
	UpdateQuestion(ctx context.Context, update *store.UpdateQuestion) error
	DeleteQuestions(ctx context.Context, delete *store.DeleteQuestion) (int, error)
}

// Item is one incoming question in a load file.
type Item struct {
	Text        string   `json:"question_text"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"correct_answer_index"`
	Explanation string   `json:"explanation"`
	Topic       string   `json:"topic"`
	Difficulty  float64  `json:"difficulty"`
}

// Action classifies a per-item decision.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Decision is one reconciliation outcome, identified by content hash so a
// dry run and a real run produce identical reports.
type Decision struct {
	Action      Action `json:"action"`
	ContentHash string `json:"content_hash"`
	Topic       string `json:"topic"`
}

// Report summarizes one load operation.
type Report struct {
	Inserted  int        `json:"inserted"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	Deleted   int        `json:"deleted"`
	DryRun    bool       `json:"dry_run"`
	Decisions []Decision `json:"decisions"`
}

// Options controls a load operation.
type Options struct {
	// DryRun computes and reports decisions without committing anything.
	DryRun bool
	// ForceRender re-renders artifacts even when already cached. Only
	// meaningful when the loader carries a render cache.
	ForceRender bool
}

// Loader performs batch reconciliation. The render cache is optional; when
// present, inserted questions are rendered eagerly after commit.
type Loader struct {
	store Store
	cache *render.Cache
}

// New creates a loader. cache may be nil to skip eager rendering.
func New(s Store, cache *render.Cache) *Loader {
	return &Loader{store: s, cache: cache}
}

// ParseFile reads a JSON question file.
func ParseFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read question file %q", path)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, qerrors.MalformedContent(errors.Wrap(err, "invalid question file").Error())
	}
	return items, nil
}

// Add inserts items whose hash is not yet present in the course. Items with
// a matching hash are skipped and reported, not treated as errors.
func (l *Loader) Add(ctx context.Context, courseID int32, items []Item, opts Options) (*Report, error) {
	contents, hashes, err := validateItems(items)
	if err != nil {
		return nil, err
	}
	existing, err := l.hashIndex(ctx, courseID)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: opts.DryRun}
	for i, item := range items {
		hash := hashes[i]
		if _, ok := existing[hash]; ok {
			report.Skipped++
			report.Decisions = append(report.Decisions, Decision{ActionSkip, hash, item.Topic})
			continue
		}
		// Claim the hash so an in-batch duplicate is skipped identically
		// in dry and real runs.
		existing[hash] = nil
		report.Inserted++
		report.Decisions = append(report.Decisions, Decision{ActionInsert, hash, item.Topic})

		if opts.DryRun {
			continue
		}
		if err := l.insert(ctx, courseID, item, hash); err != nil {
			return nil, err
		}
		l.renderEagerly(ctx, contents[i], opts)
	}
	return report, nil
}

// Update refreshes the mutable attributes of items whose hash matches an
// existing record. Items with no match are skipped and reported.
func (l *Loader) Update(ctx context.Context, courseID int32, items []Item, opts Options) (*Report, error) {
	_, hashes, err := validateItems(items)
	if err != nil {
		return nil, err
	}
	existing, err := l.hashIndex(ctx, courseID)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: opts.DryRun}
	for i, item := range items {
		hash := hashes[i]
		question, ok := existing[hash]
		if !ok || question == nil {
			report.Skipped++
			report.Decisions = append(report.Decisions, Decision{ActionSkip, hash, item.Topic})
			continue
		}
		report.Updated++
		report.Decisions = append(report.Decisions, Decision{ActionUpdate, hash, item.Topic})

		if opts.DryRun {
			continue
		}
		now := time.Now().Unix()
		update := &store.UpdateQuestion{
			ID:          question.ID,
			Topic:       &item.Topic,
			Explanation: &item.Explanation,
			Difficulty:  &item.Difficulty,
			UpdatedTs:   &now,
		}
		if err := l.store.UpdateQuestion(ctx, update); err != nil {
			return nil, qerrors.StoreUnavailable("failed to update question", err)
		}
	}
	return report, nil
}

// ReplaceAll deletes every record in the course scope, then inserts the
// incoming set. In-batch duplicates are skipped to keep hashes unique.
func (l *Loader) ReplaceAll(ctx context.Context, courseID int32, items []Item, opts Options) (*Report, error) {
	contents, hashes, err := validateItems(items)
	if err != nil {
		return nil, err
	}
	existing, err := l.hashIndex(ctx, courseID)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: opts.DryRun, Deleted: len(existing)}
	if !opts.DryRun {
		deleted, err := l.store.DeleteQuestions(ctx, &store.DeleteQuestion{CourseID: &courseID})
		if err != nil {
			return nil, qerrors.StoreUnavailable("failed to delete course questions", err)
		}
		report.Deleted = deleted
	}

	seen := make(map[string]bool)
	for i, item := range items {
		hash := hashes[i]
		if seen[hash] {
			report.Skipped++
			report.Decisions = append(report.Decisions, Decision{ActionSkip, hash, item.Topic})
			continue
		}
		seen[hash] = true
		report.Inserted++
		report.Decisions = append(report.Decisions, Decision{ActionInsert, hash, item.Topic})

		if opts.DryRun {
			continue
		}
		if err := l.insert(ctx, courseID, item, hash); err != nil {
			return nil, err
		}
		l.renderEagerly(ctx, contents[i], opts)
	}
	return report, nil
}

func (l *Loader) insert(ctx context.Context, courseID int32, item Item, hash string) error {
	now := time.Now().Unix()
	_, err := l.store.CreateQuestion(ctx, &store.Question{
		UID:         shortuuid.New(),
		CourseID:    courseID,
		Topic:       item.Topic,
		Text:        item.Text,
		Options:     item.Options,
		AnswerIndex: int32(item.AnswerIndex),
		Explanation: item.Explanation,
		Difficulty:  item.Difficulty,
		ContentHash: hash,
		CreatedTs:   now,
		UpdatedTs:   now,
	})
	if err != nil {
		// A concurrent writer can land the same hash between our index read
		// and this insert; the unique constraint reports it.
		if isUniqueViolation(err) {
			return qerrors.DuplicateContent(hash)
		}
		return qerrors.StoreUnavailable("failed to insert question", err)
	}
	return nil
}

// isUniqueViolation matches the constraint-violation text of both supported
// drivers.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key value")
}

// renderEagerly warms the render cache for newly loaded content. Render
// failures are logged, never fatal: presentation falls back to text.
func (l *Loader) renderEagerly(ctx context.Context, content render.Content, opts Options) {
	if l.cache == nil {
		return
	}
	if _, err := l.cache.GetOrRender(ctx, content, render.Options{ForceRender: opts.ForceRender}); err != nil {
		slog.Warn("eager render failed", "error", err)
	}
}

// validateItems hashes every item up front so malformed input rejects the
// whole batch before any mutation.
func validateItems(items []Item) ([]render.Content, []string, error) {
	contents := make([]render.Content, len(items))
	hashes := make([]string, len(items))
	for i, item := range items {
		content := render.Content{
			Text:        item.Text,
			Options:     item.Options,
			AnswerIndex: item.AnswerIndex,
			Explanation: item.Explanation,
		}
		hash, err := render.Hash(content)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "item %d", i)
		}
		contents[i] = content
		hashes[i] = hash
	}
	return contents, hashes, nil
}

// hashIndex maps content hash to question for one course.
func (l *Loader) hashIndex(ctx context.Context, courseID int32) (map[string]*store.Question, error) {
	questions, err := l.store.ListQuestions(ctx, &store.FindQuestion{CourseID: &courseID})
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to list course questions", err)
	}
	index := make(map[string]*store.Question, len(questions))
	for _, q := range questions {
		index[q.ContentHash] = q
	}
	return index, nil
}
