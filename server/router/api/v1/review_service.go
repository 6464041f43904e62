package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// masteredIntervalDays is the interval beyond which a question counts as
// mastered.
const masteredIntervalDays = 30

// ReviewStatsResponse summarizes a user's spaced-repetition standing.
type ReviewStatsResponse struct {
	UserID        int64 `json:"user_id"`
	TotalTracked  int   `json:"total_tracked"`
	DueNow        int   `json:"due_now"`
	Mastered      int   `json:"mastered"`
	LongestStreak int   `json:"longest_streak"`
}

// GetReviewStats returns the review summary for one user.
// GET /api/v1/users/:id/review-stats
func (s *APIV1Service) GetReviewStats(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}

	ctx := c.Request().Context()
	due, err := s.Clock.DueStats(ctx, userID)
	if err != nil {
		return errorJSON(c, err)
	}
	all, err := s.Clock.AllStats(ctx, userID)
	if err != nil {
		return errorJSON(c, err)
	}

	response := ReviewStatsResponse{
		UserID:       userID,
		TotalTracked: len(all),
		DueNow:       len(due),
	}
	for _, stat := range all {
		if stat.IntervalDays > masteredIntervalDays {
			response.Mastered++
		}
		if stat.Streak > response.LongestStreak {
			response.LongestStreak = stat.Streak
		}
	}
	return c.JSON(http.StatusOK, response)
}
