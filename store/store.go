package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/profile"
	"github.com/Kevin-nav/AskTheSage/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Caches
	courseCache   *cache.Cache // cache for courses
	questionCache *cache.Cache // cache for questions, keyed by id
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:        driver,
		profile:       profile,
		courseCache:   cache.New(cacheConfig),
		questionCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.courseCache.Close()
	s.questionCache.Close()

	return s.driver.Close()
}

func (s *Store) CreateCourse(ctx context.Context, create *Course) (*Course, error) {
	return s.driver.CreateCourse(ctx, create)
}

func (s *Store) ListCourses(ctx context.Context, find *FindCourse) ([]*Course, error) {
	return s.driver.ListCourses(ctx, find)
}

func (s *Store) GetCourse(ctx context.Context, find *FindCourse) (*Course, error) {
	if find.ID != nil {
		if v, ok := s.courseCache.Get(ctx, courseCacheKey(*find.ID)); ok {
			return v.(*Course), nil
		}
	}

	list, err := s.driver.ListCourses(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	course := list[0]
	s.courseCache.Set(ctx, courseCacheKey(course.ID), course)
	return course, nil
}

func (s *Store) DeleteCourse(ctx context.Context, delete *DeleteCourse) error {
	if err := s.driver.DeleteCourse(ctx, delete); err != nil {
		return err
	}
	s.courseCache.Delete(ctx, courseCacheKey(delete.ID))
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, create *Question) (*Question, error) {
	return s.driver.CreateQuestion(ctx, create)
}

func (s *Store) ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error) {
	return s.driver.ListQuestions(ctx, find)
}

func (s *Store) GetQuestion(ctx context.Context, find *FindQuestion) (*Question, error) {
	if find.ID != nil {
		if v, ok := s.questionCache.Get(ctx, questionCacheKey(*find.ID)); ok {
			return v.(*Question), nil
		}
	}

	list, err := s.driver.ListQuestions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	question := list[0]
	s.questionCache.Set(ctx, questionCacheKey(question.ID), question)
	return question, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, update *UpdateQuestion) error {
	if err := s.driver.UpdateQuestion(ctx, update); err != nil {
		return err
	}
	s.questionCache.Delete(ctx, questionCacheKey(update.ID))
	return nil
}

// DeleteQuestions removes questions and returns the number deleted.
// Question caches are cleared wholesale: course-scoped deletes have no
// cheap way to enumerate affected ids.
func (s *Store) DeleteQuestions(ctx context.Context, delete *DeleteQuestion) (int, error) {
	n, err := s.driver.DeleteQuestions(ctx, delete)
	if err != nil {
		return 0, err
	}
	s.questionCache.Clear(ctx)
	return n, nil
}

func (s *Store) UpsertUserQuestionStat(ctx context.Context, upsert *UpsertUserQuestionStat) (*UserQuestionStat, error) {
	return s.driver.UpsertUserQuestionStat(ctx, upsert)
}

func (s *Store) ListUserQuestionStats(ctx context.Context, find *FindUserQuestionStat) ([]*UserQuestionStat, error) {
	return s.driver.ListUserQuestionStats(ctx, find)
}

func (s *Store) UpsertTopicMastery(ctx context.Context, upsert *UpsertTopicMastery) (*TopicMastery, error) {
	return s.driver.UpsertTopicMastery(ctx, upsert)
}

func (s *Store) ListTopicMasteries(ctx context.Context, find *FindTopicMastery) ([]*TopicMastery, error) {
	return s.driver.ListTopicMasteries(ctx, find)
}

func (s *Store) UpsertRenderArtifact(ctx context.Context, upsert *UpsertRenderArtifact) (*RenderArtifact, error) {
	return s.driver.UpsertRenderArtifact(ctx, upsert)
}

func (s *Store) GetRenderArtifact(ctx context.Context, find *FindRenderArtifact) (*RenderArtifact, error) {
	return s.driver.GetRenderArtifact(ctx, find)
}

func (s *Store) DeleteRenderArtifact(ctx context.Context, delete *DeleteRenderArtifact) error {
	return s.driver.DeleteRenderArtifact(ctx, delete)
}

func courseCacheKey(id int32) string {
	return fmt.Sprintf("course:%d", id)
}

func questionCacheKey(id int32) string {
	return fmt.Sprintf("question:%d", id)
}
