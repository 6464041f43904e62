package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Kevin-nav/AskTheSage/store"
)

// CourseResponse is one course in the listing.
type CourseResponse struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QuestionCountResponse reports how many questions a course holds.
type QuestionCountResponse struct {
	CourseID int32 `json:"course_id"`
	Count    int   `json:"count"`
}

// ListCourses returns all courses.
// GET /api/v1/courses
func (s *APIV1Service) ListCourses(c echo.Context) error {
	courses, err := s.Store.ListCourses(c.Request().Context(), &store.FindCourse{})
	if err != nil {
		return errorJSON(c, err)
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, CourseResponse{
			ID:          course.ID,
			Name:        course.Name,
			Description: course.Description,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// GetQuestionCount returns the question count of one course.
// GET /api/v1/courses/:id/questions/count
func (s *APIV1Service) GetQuestionCount(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid course id"})
	}
	courseID := int32(id)

	questions, err := s.Store.ListQuestions(c.Request().Context(), &store.FindQuestion{CourseID: &courseID})
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, QuestionCountResponse{
		CourseID: courseID,
		Count:    len(questions),
	})
}
