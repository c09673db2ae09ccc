package services

import (
	"context"
	"testing"

	"lms/cache"
	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLessonRejectedAtQuota(t *testing.T) {
	db := newTestDB(t)
	sink := &sinkRecorder{}
	svc := NewLessonService(db, cache.NewMemoryCache(), sink)

	course := createCourse(t, db, "HTML", 5)
	for i := 0; i < 5; i++ {
		_, err := svc.Create(course.ID, LessonInput{Name: "Lesson", Preview: "p"})
		require.NoError(t, err)
	}

	_, err := svc.Create(course.ID, LessonInput{Name: "One too many"})
	var quotaErr *QuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 5, quotaErr.Quota)
	assert.Contains(t, err.Error(), "5")

	// the rejected lesson must not be persisted
	var count int64
	require.NoError(t, db.Model(&models.Lesson{}).Where("course_id = ?", course.ID).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}

func TestCreateLessonMissingCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewLessonService(db, cache.NewMemoryCache(), &sinkRecorder{})

	_, err := svc.Create(999, LessonInput{Name: "Orphan"})
	assert.Error(t, err)
}

func TestLastLessonAnnouncesCourse(t *testing.T) {
	db := newTestDB(t)
	sink := &sinkRecorder{}
	svc := NewLessonService(db, cache.NewMemoryCache(), sink)

	course := createCourse(t, db, "HTML", 2)

	_, err := svc.Create(course.ID, LessonInput{Name: "First"})
	require.NoError(t, err)
	assert.Empty(t, sink.byType(EventCoursePublished))

	_, err = svc.Create(course.ID, LessonInput{Name: "Second"})
	require.NoError(t, err)
	assert.Len(t, sink.byType(EventCoursePublished), 1)
}

func TestLessonListUsesCacheUntilInvalidated(t *testing.T) {
	db := newTestDB(t)
	svc := NewLessonService(db, cache.NewMemoryCache(), &sinkRecorder{})

	course := createCourse(t, db, "HTML", 5)
	_, err := svc.Create(course.ID, LessonInput{Name: "First"})
	require.NoError(t, err)

	lessons, err := svc.List(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 1)

	// a write that bypasses the service is invisible until invalidation
	require.NoError(t, db.Create(&models.Lesson{CourseID: course.ID, Name: "Backdoor"}).Error)

	lessons, err = svc.List(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 1)

	// a service write invalidates, so the next read sees everything
	_, err = svc.Create(course.ID, LessonInput{Name: "Third"})
	require.NoError(t, err)

	lessons, err = svc.List(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 3)
}
