package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lms/cache"
	"lms/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaError is returned when a course already holds as many lessons as
// its declared quota. It carries the configured quota so the caller can
// render a useful error.
type QuotaError struct {
	Quota int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("the lesson limit is reached: you declared earlier that the course would contain %d lessons", e.Quota)
}

type LessonInput struct {
	Name    string `json:"name" validate:"required"`
	Preview string `json:"preview" validate:"max=200"`
}

type LessonService struct {
	DB       *gorm.DB
	Cache    cache.Cache
	Events   EventSink
	CacheTTL int // seconds, for the per-course lesson list
}

func NewLessonService(db *gorm.DB, c cache.Cache, events EventSink) *LessonService {
	return &LessonService{DB: db, Cache: c, Events: events, CacheTTL: 30}
}

// Create persists a new lesson unless it would push the course past its
// declared lesson quota. The count is read inside a transaction with
// the course row locked, so co-authors creating lessons concurrently
// cannot overshoot the quota.
func (s *LessonService) Create(courseID uint, input LessonInput) (*models.Lesson, error) {
	var lesson models.Lesson
	var published bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() == "postgres" {
			// sqlite has no FOR UPDATE; its write lock covers the whole file
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var course models.Course
		if err := query.First(&course, courseID).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(course.CountLessons) {
			return &QuotaError{Quota: course.CountLessons}
		}

		lesson = models.Lesson{
			CourseID: courseID,
			Name:     input.Name,
			Preview:  input.Preview,
		}
		if err := tx.Create(&lesson).Error; err != nil {
			return err
		}

		// Once the last declared lesson lands, the course is announced
		published = count+1 == int64(course.CountLessons)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Invalidate(context.Background(), cache.CourseLessonsKey(courseID), cache.CoursesKey); err != nil {
		return &lesson, err
	}

	if published {
		s.Events.Dispatch(Event{
			Type:     EventCoursePublished,
			CourseID: courseID,
			Message:  "A new course is available on the platform. Follow the link below for details.",
		})
	}

	return &lesson, nil
}

// List returns the course's lessons through the read-through cache.
func (s *LessonService) List(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	data, err := s.Cache.GetOrSet(ctx, cache.CourseLessonsKey(courseID), ttlSeconds(s.CacheTTL), func() ([]byte, error) {
		var lessons []models.Lesson
		if err := s.DB.Where("course_id = ?", courseID).Order("id").Find(&lessons).Error; err != nil {
			return nil, err
		}
		return json.Marshal(lessons)
	})
	if err != nil {
		return nil, err
	}

	var lessons []models.Lesson
	if err := json.Unmarshal(data, &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

func ttlSeconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
