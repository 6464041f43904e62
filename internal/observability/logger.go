package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldUserID is the field name for user ID.
	LogFieldUserID = "user_id"
	// LogFieldSessionID is the field name for quiz session ID.
	LogFieldSessionID = "session_id"
	// LogFieldCourseID is the field name for course ID.
	LogFieldCourseID = "course_id"
	// LogFieldQuestionID is the field name for question ID.
	LogFieldQuestionID = "question_id"
	// LogFieldContentHash is the field name for render content hash.
	LogFieldContentHash = "content_hash"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// SessionContext carries structured logging state for one quiz session or
// loader run.
type SessionContext struct {
	RequestID string
	UserID    int64
	SessionID string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewSessionContext creates a new session context with a generated request ID.
func NewSessionContext(logger *slog.Logger, sessionID string, userID int64) *SessionContext {
	return &SessionContext{
		RequestID: uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// Info logs an info message.
func (s *SessionContext) Info(msg string, attrs ...slog.Attr) {
	s.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, s.withBase(attrs...)...)
}

// Debug logs a debug message.
func (s *SessionContext) Debug(msg string, attrs ...slog.Attr) {
	s.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, s.withBase(attrs...)...)
}

// Warn logs a warning message.
func (s *SessionContext) Warn(msg string, attrs ...slog.Attr) {
	s.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, s.withBase(attrs...)...)
}

// Error logs an error message with the error.
func (s *SessionContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	s.Logger.LogAttrs(context.Background(), slog.LevelError, msg, s.withBase(allAttrs...)...)
}

// DurationMs returns the elapsed time in milliseconds.
func (s *SessionContext) DurationMs() int64 {
	return time.Since(s.StartTime).Milliseconds()
}

func (s *SessionContext) withBase(attrs ...slog.Attr) []slog.Attr {
	base := []slog.Attr{
		slog.String(LogFieldRequestID, s.RequestID),
		slog.Int64(LogFieldUserID, s.UserID),
		slog.String(LogFieldSessionID, s.SessionID),
	}
	return append(base, attrs...)
}
