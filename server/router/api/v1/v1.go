// Package v1 exposes the HTTP API surface.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kevin-nav/AskTheSage/internal/profile"
	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/server/middleware"
	"github.com/Kevin-nav/AskTheSage/server/render"
	"github.com/Kevin-nav/AskTheSage/server/service/review"
	"github.com/Kevin-nav/AskTheSage/server/service/session"
	"github.com/Kevin-nav/AskTheSage/store"
)

// CourseStore is the read surface the API needs from the store.
type CourseStore interface {
	ListCourses(ctx context.Context, find *store.FindCourse) ([]*store.Course, error)
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
}

// APIV1Service wires the quiz services into HTTP routes.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     CourseStore
	Clock     *review.Clock
	Scheduler *session.Scheduler
	// Cache may be nil; question delivery then always falls back to text.
	Cache *render.Cache
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, s CourseStore, clock *review.Clock, scheduler *session.Scheduler, cache *render.Cache) *APIV1Service {
	return &APIV1Service{
		Profile:   p,
		Store:     s,
		Clock:     clock,
		Scheduler: scheduler,
		Cache:     cache,
	}
}

// Register attaches all routes to the echo instance.
func (s *APIV1Service) Register(e *echo.Echo, limiter *middleware.RateLimiter) {
	e.GET("/healthz", s.GetHealth)

	group := e.Group("/api/v1")
	if limiter != nil {
		group.Use(limiter.Middleware())
	}
	group.GET("/courses", s.ListCourses)
	group.GET("/courses/:id/questions/count", s.GetQuestionCount)
	group.GET("/users/:id/review-stats", s.GetReviewStats)

	group.POST("/sessions", s.StartSession)
	group.POST("/sessions/:id/next", s.NextQuestion)
	group.POST("/sessions/:id/answer", s.RecordAnswer)
	group.DELETE("/sessions/:id", s.AbandonSession)
}

// GetHealth returns liveness and the running version.
// GET /healthz
func (s *APIV1Service) GetHealth(c echo.Context) error {
	version := ""
	if s.Profile != nil {
		version = s.Profile.Version
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

// httpStatus maps taxonomy errors onto response codes.
func httpStatus(err error) int {
	switch qerrors.GetCodeFromError(err, "") {
	case qerrors.ErrCodeMalformedContent:
		return http.StatusBadRequest
	case qerrors.ErrCodeSessionState:
		return http.StatusConflict
	case qerrors.ErrCodeDuplicateContent:
		return http.StatusConflict
	case qerrors.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case qerrors.ErrCodeRenderTimeout, qerrors.ErrCodeRenderFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(httpStatus(err), map[string]string{"error": err.Error()})
}
