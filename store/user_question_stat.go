package store

// UserQuestionStat is the per-(user, question) spaced-repetition record.
// Created on first exposure, mutated after every answer, never deleted.
type UserQuestionStat struct {
	UserID     int64
	QuestionID int32
	// EaseFactor is the SM-2 multiplier controlling interval growth.
	EaseFactor   float64
	IntervalDays int
	// DueTs is the next-due timestamp (unix seconds). Zero means the
	// question has never completed a review.
	DueTs int64
	// Streak is the consecutive-correct count.
	Streak     int
	LastSeenTs int64
}

// FindUserQuestionStat is the find condition for user question stat.
type FindUserQuestionStat struct {
	UserID     *int64
	QuestionID *int32
	// CourseID restricts results to questions of one course.
	CourseID *int32
	// DueBefore restricts results to stats due at or before the timestamp.
	DueBefore *int64
}

// UpsertUserQuestionStat is the upsert request for user question stat.
type UpsertUserQuestionStat struct {
	UserID       int64
	QuestionID   int32
	EaseFactor   float64
	IntervalDays int
	DueTs        int64
	Streak       int
	LastSeenTs   int64
}
