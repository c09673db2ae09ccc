package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lms/models"
	"lms/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	return db
}

// sinkRecorder collects dispatched events synchronously for assertions.
type sinkRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *sinkRecorder) Dispatch(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *sinkRecorder) byType(eventType EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCourse(t *testing.T, db *gorm.DB, title string, countLessons int) models.Course {
	t.Helper()
	course := models.Course{
		Title:        title,
		Description:  "test course",
		StartDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Duration:     4,
		Price:        100,
		CountLessons: countLessons,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func createLessons(t *testing.T, db *gorm.DB, courseID uint, count int) []models.Lesson {
	t.Helper()
	lessons := make([]models.Lesson, 0, count)
	for i := 1; i <= count; i++ {
		lesson := models.Lesson{
			CourseID: courseID,
			Name:     fmt.Sprintf("Lesson %d", i),
			Preview:  "preview",
		}
		require.NoError(t, db.Create(&lesson).Error)
		lessons = append(lessons, lesson)
	}
	return lessons
}

func markPassed(t *testing.T, db *gorm.DB, userID, lessonID uint) {
	t.Helper()
	require.NoError(t, db.Model(&models.Tracking{}).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Update("passed", true).Error)
}
