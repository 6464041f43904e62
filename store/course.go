package store

// Course is the scope unit for question loading and quiz sessions.
type Course struct {
	ID          int32
	Name        string
	Description string
	CreatedTs   int64
}

// FindCourse is the find condition for course.
type FindCourse struct {
	ID   *int32
	Name *string
}

// DeleteCourse is the delete request for course.
type DeleteCourse struct {
	ID int32
}
