package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevin-nav/AskTheSage/internal/profile"
	"github.com/Kevin-nav/AskTheSage/server/service/mastery"
	"github.com/Kevin-nav/AskTheSage/server/service/review"
	"github.com/Kevin-nav/AskTheSage/server/service/session"
	"github.com/Kevin-nav/AskTheSage/store"
)

// fakeStore backs every store surface the API stack touches.
type fakeStore struct {
	mu        sync.Mutex
	courses   []*store.Course
	questions []*store.Question
	stats     map[int64]map[int32]*store.UserQuestionStat
	masteries map[int64]map[string]*store.TopicMastery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats:     make(map[int64]map[int32]*store.UserQuestionStat),
		masteries: make(map[int64]map[string]*store.TopicMastery),
	}
}

func (f *fakeStore) ListCourses(_ context.Context, find *store.FindCourse) ([]*store.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*store.Course
	for _, course := range f.courses {
		if find.ID != nil && course.ID != *find.ID {
			continue
		}
		result = append(result, course)
	}
	return result, nil
}

func (f *fakeStore) ListQuestions(_ context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*store.Question
	for _, q := range f.questions {
		if find.CourseID != nil && q.CourseID != *find.CourseID {
			continue
		}
		result = append(result, q)
	}
	return result, nil
}

func (f *fakeStore) UpsertUserQuestionStat(_ context.Context, upsert *store.UpsertUserQuestionStat) (*store.UserQuestionStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats[upsert.UserID] == nil {
		f.stats[upsert.UserID] = make(map[int32]*store.UserQuestionStat)
	}
	row := &store.UserQuestionStat{
		UserID:       upsert.UserID,
		QuestionID:   upsert.QuestionID,
		EaseFactor:   upsert.EaseFactor,
		IntervalDays: upsert.IntervalDays,
		DueTs:        upsert.DueTs,
		Streak:       upsert.Streak,
		LastSeenTs:   upsert.LastSeenTs,
	}
	f.stats[upsert.UserID][upsert.QuestionID] = row
	return row, nil
}

func (f *fakeStore) ListUserQuestionStats(_ context.Context, find *store.FindUserQuestionStat) ([]*store.UserQuestionStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*store.UserQuestionStat
	for userID, stats := range f.stats {
		if find.UserID != nil && *find.UserID != userID {
			continue
		}
		for questionID, row := range stats {
			if find.QuestionID != nil && *find.QuestionID != questionID {
				continue
			}
			if find.DueBefore != nil && row.DueTs > *find.DueBefore {
				continue
			}
			result = append(result, row)
		}
	}
	return result, nil
}

func (f *fakeStore) UpsertTopicMastery(_ context.Context, upsert *store.UpsertTopicMastery) (*store.TopicMastery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.masteries[upsert.UserID] == nil {
		f.masteries[upsert.UserID] = make(map[string]*store.TopicMastery)
	}
	row := &store.TopicMastery{
		UserID:  upsert.UserID,
		Topic:   upsert.Topic,
		Mastery: upsert.Mastery,
		Samples: upsert.Samples,
	}
	f.masteries[upsert.UserID][upsert.Topic] = row
	return row, nil
}

func (f *fakeStore) ListTopicMasteries(_ context.Context, find *store.FindTopicMastery) ([]*store.TopicMastery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*store.TopicMastery
	for userID, topics := range f.masteries {
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

func newTestService(fake *fakeStore) (*APIV1Service, *echo.Echo) {
	clock := review.NewClock(fake)
	tracker := mastery.NewTracker(fake, 0.2)
	scheduler := session.NewScheduler(fake, tracker, clock, session.Config{})
	service := NewAPIV1Service(&profile.Profile{Version: "1.0.0"}, fake, clock, scheduler, nil)

	e := echo.New()
	service.Register(e, nil)
	return service, e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetHealth(t *testing.T) {
	_, e := newTestService(newFakeStore())

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestListCourses(t *testing.T) {
	fake := newFakeStore()
	fake.courses = []*store.Course{
		{ID: 1, Name: "Calculus I", Description: "Derivatives and integrals"},
		{ID: 2, Name: "Statistics"},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/courses", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []CourseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "Calculus I", body[0].Name)
}

func TestGetQuestionCount(t *testing.T) {
	fake := newFakeStore()
	fake.questions = []*store.Question{
		{ID: 1, CourseID: 1},
		{ID: 2, CourseID: 1},
		{ID: 3, CourseID: 2},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/courses/1/questions/count", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body QuestionCountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/courses/abc/questions/count", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReviewStats(t *testing.T) {
	fake := newFakeStore()
	fake.stats[7] = map[int32]*store.UserQuestionStat{
		1: {UserID: 7, QuestionID: 1, IntervalDays: 45, Streak: 6, DueTs: time.Now().Add(time.Hour).Unix()},
		2: {UserID: 7, QuestionID: 2, IntervalDays: 1, Streak: 1, DueTs: time.Now().Add(-time.Hour).Unix()},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/users/7/review-stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ReviewStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalTracked)
	assert.Equal(t, 1, body.DueNow)
	assert.Equal(t, 1, body.Mastered)
	assert.Equal(t, 6, body.LongestStreak)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	fake := newFakeStore()
	fake.questions = []*store.Question{
		{ID: 1, CourseID: 1, Topic: "algebra", Text: "1+1?", Options: []string{"1", "2"}, AnswerIndex: 1},
		{ID: 2, CourseID: 1, Topic: "algebra", Text: "2+2?", Options: []string{"4", "5"}, AnswerIndex: 0},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions",
		`{"user_id": 7, "course_id": 1, "target_length": 2, "seed": 42}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	for i := 0; i < 2; i++ {
		rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/next", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var next NextQuestionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
		require.False(t, next.Exhausted)
		assert.Empty(t, next.ArtifactRef, "no render cache configured")
		assert.NotZero(t, next.TimeLimitSeconds)

		rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/answer",
			`{"question_id": `+jsonInt(next.QuestionID)+`, "selected_index": 0, "latency_ms": 3000}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Both questions answered: the session completed and was released.
	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/next", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecordAnswerGrades(t *testing.T) {
	fake := newFakeStore()
	fake.questions = []*store.Question{
		{ID: 1, CourseID: 1, Topic: "algebra", Text: "1+1?", Options: []string{"1", "2"}, AnswerIndex: 1, Explanation: "basic sum"},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions",
		`{"user_id": 7, "course_id": 1, "target_length": 1, "seed": 42}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/next", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/answer",
		`{"question_id": 1, "selected_index": 1, "latency_ms": 2000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.True(t, answer.Correct)
	assert.EqualValues(t, 1, answer.CorrectIndex)
	assert.Equal(t, "basic sum", answer.Explanation)
	assert.Equal(t, string(session.StateCompleted), answer.SessionState)
}

func TestRecordAnswerWrongQuestion(t *testing.T) {
	fake := newFakeStore()
	fake.questions = []*store.Question{
		{ID: 1, CourseID: 1, Topic: "algebra", Text: "1+1?", Options: []string{"1", "2"}, AnswerIndex: 1},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions",
		`{"user_id": 7, "course_id": 1, "target_length": 1, "seed": 42}`)
	var created SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/next", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/answer",
		`{"question_id": 99, "selected_index": 0, "latency_ms": 1000}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAbandonSession(t *testing.T) {
	fake := newFakeStore()
	fake.questions = []*store.Question{
		{ID: 1, CourseID: 1, Topic: "algebra", Text: "1+1?", Options: []string{"1", "2"}, AnswerIndex: 1},
	}
	_, e := newTestService(fake)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions",
		`{"user_id": 7, "course_id": 1, "target_length": 1, "seed": 42}`)
	var created SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func jsonInt(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
