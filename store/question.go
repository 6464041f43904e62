package store

// Question is the object representing an immutable quiz question.
// Content fields are never edited in place: a textual edit produces a new
// content hash and therefore a new row. "Update by hash" refreshes only
// the mutable attributes (explanation, difficulty, topic).
type Question struct {
	ID          int32
	UID         string
	CourseID    int32
	Topic       string
	Text        string
	Options     []string
	AnswerIndex int32
	Explanation string
	// Difficulty is a score in [0, 1].
	Difficulty float64
	// ContentHash is the normalized content identity used for dedup and
	// render-cache addressing. Unique within a course; the same content may
	// appear in different courses.
	ContentHash string
	CreatedTs   int64
	UpdatedTs   int64
}

// FindQuestion is the find condition for question.
type FindQuestion struct {
	ID          *int32
	UID         *string
	CourseID    *int32
	Topic       *string
	ContentHash *string

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateQuestion is the update request for question. Only mutable
// attributes appear here; content fields never change in place.
type UpdateQuestion struct {
	ID          int32
	Topic       *string
	Explanation *string
	Difficulty  *float64
	UpdatedTs   *int64
}

// DeleteQuestion is the delete request for question.
type DeleteQuestion struct {
	ID *int32
	// CourseID deletes every question in the course scope (replace-all).
	CourseID *int32
}
