package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/store"
)

// fakeQuestionStore is an in-memory question table.
type fakeQuestionStore struct {
	questions []*store.Question
	nextID    int32
}

func (f *fakeQuestionStore) ListQuestions(_ context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	var result []*store.Question
	for _, q := range f.questions {
		if find.CourseID != nil && q.CourseID != *find.CourseID {
			continue
		}
		result = append(result, q)
	}
	return result, nil
}

func (f *fakeQuestionStore) CreateQuestion(_ context.Context, create *store.Question) (*store.Question, error) {
	for _, q := range f.questions {
		if q.CourseID == create.CourseID && q.ContentHash == create.ContentHash {
			return nil, fmt.Errorf("constraint failed: UNIQUE constraint failed: question.course_id, question.content_hash")
		}
	}
	f.nextID++
	q := *create
	q.ID = f.nextID
	f.questions = append(f.questions, &q)
	return &q, nil
}

func (f *fakeQuestionStore) UpdateQuestion(_ context.Context, update *store.UpdateQuestion) error {
	for _, q := range f.questions {
		if q.ID == update.ID {
			if update.Topic != nil {
				q.Topic = *update.Topic
			}
			if update.Explanation != nil {
				q.Explanation = *update.Explanation
			}
			if update.Difficulty != nil {
				q.Difficulty = *update.Difficulty
			}
			return nil
		}
	}
	return fmt.Errorf("question %d not found", update.ID)
}

func (f *fakeQuestionStore) DeleteQuestions(_ context.Context, delete *store.DeleteQuestion) (int, error) {
	var kept []*store.Question
	deleted := 0
	for _, q := range f.questions {
		if delete.CourseID != nil && q.CourseID == *delete.CourseID {
			deleted++
			continue
		}
		kept = append(kept, q)
	}
	f.questions = kept
	return deleted, nil
}

func testItem(n int) Item {
	return Item{
		Text:        fmt.Sprintf("Question number %d?", n),
		Options:     []string{"a", "b", "c"},
		AnswerIndex: 0,
		Explanation: "because",
		Topic:       "algebra",
		Difficulty:  0.5,
	}
}

func TestAddInsertsAndSkipsDuplicates(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)
	ctx := context.Background()

	// Seed one existing question.
	_, err := l.Add(ctx, 1, []Item{testItem(1)}, Options{})
	require.NoError(t, err)

	// One duplicate, one new item: exactly one insert and one skip.
	report, err := l.Add(ctx, 1, []Item{testItem(1), testItem(2)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, fake.questions, 2)
}

func TestAddInBatchDuplicate(t *testing.T) {
	l := New(&fakeQuestionStore{}, nil)

	report, err := l.Add(context.Background(), 1, []Item{testItem(1), testItem(1)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Skipped)
}

func TestAddWhitespaceEditIsDuplicate(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)
	ctx := context.Background()

	_, err := l.Add(ctx, 1, []Item{testItem(1)}, Options{})
	require.NoError(t, err)

	edited := testItem(1)
	edited.Text = "  Question   number 1?  "
	report, err := l.Add(ctx, 1, []Item{edited}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Skipped)
}

func TestAddSameContentToAnotherCourse(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)
	ctx := context.Background()

	_, err := l.Add(ctx, 1, []Item{testItem(1), testItem(2)}, Options{})
	require.NoError(t, err)

	// The same content in another course is new there: the dry run promises
	// two inserts and the real run must deliver exactly that.
	dry, err := l.Add(ctx, 2, []Item{testItem(1), testItem(2)}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, dry.Inserted)
	assert.Equal(t, 0, dry.Skipped)

	report, err := l.Add(ctx, 2, []Item{testItem(1), testItem(2)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 0, report.Skipped)
	assert.Len(t, fake.questions, 4)
}

func TestUpdateRefreshesMutableAttributes(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)
	ctx := context.Background()

	_, err := l.Add(ctx, 1, []Item{testItem(1)}, Options{})
	require.NoError(t, err)

	changed := testItem(1)
	changed.Explanation = "a better explanation"
	changed.Difficulty = 0.9
	missing := testItem(2)

	report, err := l.Update(ctx, 1, []Item{changed, missing}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "a better explanation", fake.questions[0].Explanation)
	assert.Equal(t, 0.9, fake.questions[0].Difficulty)
}

func TestReplaceAll(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)
	ctx := context.Background()

	var seed []Item
	for i := 0; i < 10; i++ {
		seed = append(seed, testItem(i))
	}
	_, err := l.Add(ctx, 1, seed, Options{})
	require.NoError(t, err)
	require.Len(t, fake.questions, 10)

	report, err := l.ReplaceAll(ctx, 1, []Item{testItem(100), testItem(101), testItem(102)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, report.Deleted)
	assert.Equal(t, 3, report.Inserted)
	assert.Len(t, fake.questions, 3)
}

func TestReplaceAllScopedToCourse(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)
	ctx := context.Background()

	_, err := l.Add(ctx, 1, []Item{testItem(1)}, Options{})
	require.NoError(t, err)
	_, err = l.Add(ctx, 2, []Item{testItem(2)}, Options{})
	require.NoError(t, err)

	_, err = l.ReplaceAll(ctx, 1, []Item{testItem(3)}, Options{})
	require.NoError(t, err)

	other, err := fake.ListQuestions(ctx, &store.FindQuestion{CourseID: ptr(int32(2))})
	require.NoError(t, err)
	assert.Len(t, other, 1, "another course's questions must be untouched")
}

func TestDryRunMatchesRealRun(t *testing.T) {
	ctx := context.Background()

	seed := []Item{testItem(1), testItem(2)}
	incoming := []Item{testItem(2), testItem(3), testItem(3)}

	type operation func(*Loader, Options) (*Report, error)
	operations := map[string]operation{
		"add": func(l *Loader, opts Options) (*Report, error) {
			return l.Add(ctx, 1, incoming, opts)
		},
		"update": func(l *Loader, opts Options) (*Report, error) {
			return l.Update(ctx, 1, incoming, opts)
		},
		"replaceAll": func(l *Loader, opts Options) (*Report, error) {
			return l.ReplaceAll(ctx, 1, incoming, opts)
		},
	}

	for name, op := range operations {
		t.Run(name, func(t *testing.T) {
			fake := &fakeQuestionStore{}
			l := New(fake, nil)
			_, err := l.Add(ctx, 1, seed, Options{})
			require.NoError(t, err)
			before := len(fake.questions)

			dry, err := op(l, Options{DryRun: true})
			require.NoError(t, err)
			assert.Len(t, fake.questions, before, "dry run must not mutate")

			real, err := op(l, Options{})
			require.NoError(t, err)

			// Decision output must be byte-identical.
			dry.DryRun = false
			dryJSON, err := json.Marshal(dry)
			require.NoError(t, err)
			realJSON, err := json.Marshal(real)
			require.NoError(t, err)
			assert.Equal(t, string(dryJSON), string(realJSON))
		})
	}
}

func TestAddMalformedItemRejectsBatch(t *testing.T) {
	fake := &fakeQuestionStore{}
	l := New(fake, nil)

	bad := testItem(1)
	bad.Options = []string{"only one"}

	_, err := l.Add(context.Background(), 1, []Item{testItem(2), bad}, Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeMalformedContent))
	assert.Empty(t, fake.questions, "no item commits when any item is malformed")
}

// conflictingStore reports a unique-constraint violation on insert, as a
// concurrent writer landing the same hash first would cause.
type conflictingStore struct {
	fakeQuestionStore
}

func (c *conflictingStore) CreateQuestion(_ context.Context, _ *store.Question) (*store.Question, error) {
	return nil, fmt.Errorf("constraint failed: UNIQUE constraint failed: question.course_id, question.content_hash")
}

func TestAddConcurrentDuplicate(t *testing.T) {
	l := New(&conflictingStore{}, nil)

	_, err := l.Add(context.Background(), 1, []Item{testItem(1)}, Options{})
	require.Error(t, err)
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeDuplicateContent))
}

func TestParseFile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeTempJSON(t, `[{"question_text":"q","options":["a","b"],"correct_answer_index":1,"topic":"algebra","difficulty":0.3}]`)
		items, err := ParseFile(path)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "q", items[0].Text)
		assert.Equal(t, 1, items[0].AnswerIndex)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeTempJSON(t, `{not json`)
		_, err := ParseFile(path)
		require.Error(t, err)
		assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeMalformedContent))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseFile("/does/not/exist.json")
		assert.Error(t, err)
	})
}

func ptr[T any](v T) *T {
	return &v
}

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
