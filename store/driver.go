package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Course model related methods.
	CreateCourse(ctx context.Context, create *Course) (*Course, error)
	ListCourses(ctx context.Context, find *FindCourse) ([]*Course, error)
	DeleteCourse(ctx context.Context, delete *DeleteCourse) error

	// Question model related methods.
	CreateQuestion(ctx context.Context, create *Question) (*Question, error)
	ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error)
	UpdateQuestion(ctx context.Context, update *UpdateQuestion) error
	DeleteQuestions(ctx context.Context, delete *DeleteQuestion) (int, error)

	// UserQuestionStat model related methods.
	UpsertUserQuestionStat(ctx context.Context, upsert *UpsertUserQuestionStat) (*UserQuestionStat, error)
	ListUserQuestionStats(ctx context.Context, find *FindUserQuestionStat) ([]*UserQuestionStat, error)

	// TopicMastery model related methods.
	UpsertTopicMastery(ctx context.Context, upsert *UpsertTopicMastery) (*TopicMastery, error)
	ListTopicMasteries(ctx context.Context, find *FindTopicMastery) ([]*TopicMastery, error)

	// RenderArtifact model related methods.
	UpsertRenderArtifact(ctx context.Context, upsert *UpsertRenderArtifact) (*RenderArtifact, error)
	GetRenderArtifact(ctx context.Context, find *FindRenderArtifact) (*RenderArtifact, error)
	DeleteRenderArtifact(ctx context.Context, delete *DeleteRenderArtifact) error
}
