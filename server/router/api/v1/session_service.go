package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/server/render"
	"github.com/Kevin-nav/AskTheSage/server/service/review"
	"github.com/Kevin-nav/AskTheSage/server/service/session"
)

// StartSessionRequest creates a quiz session.
type StartSessionRequest struct {
	UserID       int64 `json:"user_id"`
	CourseID     int32 `json:"course_id"`
	TargetLength int   `json:"target_length"`
	// Seed fixes the scheduling jitter; zero draws a fresh one.
	Seed int64 `json:"seed"`
}

// SessionResponse describes a session's standing.
type SessionResponse struct {
	SessionID    string `json:"session_id"`
	State        string `json:"state"`
	TargetLength int    `json:"target_length"`
	Answered     int    `json:"answered"`
	Correct      int    `json:"correct"`
}

// NextQuestionResponse delivers one question. ArtifactRef is empty when
// rendering is unavailable and the client should present the text fields.
type NextQuestionResponse struct {
	Exhausted        bool     `json:"exhausted"`
	QuestionID       int32    `json:"question_id,omitempty"`
	Topic            string   `json:"topic,omitempty"`
	Text             string   `json:"text,omitempty"`
	Options          []string `json:"options,omitempty"`
	ArtifactRef      string   `json:"artifact_ref,omitempty"`
	TimeLimitSeconds int      `json:"time_limit_seconds,omitempty"`
}

// AnswerRequest records the learner's choice for the in-flight question.
type AnswerRequest struct {
	QuestionID    int32 `json:"question_id"`
	SelectedIndex int32 `json:"selected_index"`
	LatencyMs     int64 `json:"latency_ms"`
}

// AnswerResponse reveals the outcome.
type AnswerResponse struct {
	Correct      bool   `json:"correct"`
	CorrectIndex int32  `json:"correct_index"`
	Explanation  string `json:"explanation,omitempty"`
	SessionState string `json:"session_state"`
}

// StartSession creates a session.
// POST /api/v1/sessions
func (s *APIV1Service) StartSession(c echo.Context) error {
	var request StartSessionRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	sess, err := s.Scheduler.Start(c.Request().Context(), request.UserID, request.CourseID, request.TargetLength, request.Seed)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID:    sess.ID,
		State:        string(sess.State()),
		TargetLength: sess.TargetLength,
	})
}

// NextQuestion draws the next question and, when possible, its rendered
// artifact. A render failure never blocks delivery.
// POST /api/v1/sessions/:id/next
func (s *APIV1Service) NextQuestion(c echo.Context) error {
	ctx := c.Request().Context()
	question, err := s.Scheduler.NextQuestion(ctx, c.Param("id"))
	if errors.Is(err, session.ErrExhausted) {
		return c.JSON(http.StatusOK, NextQuestionResponse{Exhausted: true})
	}
	if err != nil {
		return errorJSON(c, err)
	}

	artifactRef := ""
	if s.Cache != nil {
		ref, renderErr := s.Cache.GetOrRender(ctx, render.ContentFromQuestion(question), render.Options{})
		if renderErr != nil {
			if !qerrors.IsRecoverable(renderErr) {
				return errorJSON(c, renderErr)
			}
			slog.Warn("render unavailable, falling back to text",
				"question_id", question.ID,
				"error", renderErr,
			)
		} else {
			artifactRef = ref
		}
	}

	return c.JSON(http.StatusOK, NextQuestionResponse{
		QuestionID:       question.ID,
		Topic:            question.Topic,
		Text:             question.Text,
		Options:          question.Options,
		ArtifactRef:      artifactRef,
		TimeLimitSeconds: int(review.TimeLimit(question.Difficulty) / time.Second),
	})
}

// RecordAnswer grades the in-flight question and records the outcome.
// POST /api/v1/sessions/:id/answer
func (s *APIV1Service) RecordAnswer(c echo.Context) error {
	var request AnswerRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sessionID := c.Param("id")

	current, err := s.Scheduler.Current(sessionID)
	if err != nil {
		return errorJSON(c, err)
	}
	if current == nil || current.ID != request.QuestionID {
		return errorJSON(c, qerrors.SessionState("question is not the in-flight question"))
	}

	correct := request.SelectedIndex == current.AnswerIndex
	latency := time.Duration(request.LatencyMs) * time.Millisecond
	if err := s.Scheduler.RecordOutcome(c.Request().Context(), sessionID, request.QuestionID, correct, latency); err != nil {
		return errorJSON(c, err)
	}

	state := session.StateInProgress
	if sess, err := s.Scheduler.Get(sessionID); err == nil {
		state = sess.State()
	} else {
		// The session completed and was released.
		state = session.StateCompleted
	}
	return c.JSON(http.StatusOK, AnswerResponse{
		Correct:      correct,
		CorrectIndex: current.AnswerIndex,
		Explanation:  current.Explanation,
		SessionState: string(state),
	})
}

// AbandonSession cancels a session. Outcomes already recorded stay.
// DELETE /api/v1/sessions/:id
func (s *APIV1Service) AbandonSession(c echo.Context) error {
	if err := s.Scheduler.Abandon(c.Param("id")); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
