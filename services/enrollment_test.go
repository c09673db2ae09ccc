package services

import (
	"testing"

	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnrollCreatesOneTrackingPerLesson(t *testing.T) {
	db := newTestDB(t)
	sink := &sinkRecorder{}
	svc := NewEnrollmentService(db, sink)

	student := createUser(t, db, "student")
	course := createCourse(t, db, "HTML", 3)
	createLessons(t, db, course.ID, 3)

	require.NoError(t, svc.Enroll(student.ID, course.ID))

	var trackings []models.Tracking
	require.NoError(t, db.Where("user_id = ?", student.ID).Find(&trackings).Error)
	require.Len(t, trackings, 3)
	for _, tracking := range trackings {
		assert.False(t, tracking.Passed)
	}

	assert.Len(t, sink.byType(EventEnrolled), 1)
}

func TestEnrollTwiceReturnsAlreadyEnrolled(t *testing.T) {
	db := newTestDB(t)
	sink := &sinkRecorder{}
	svc := NewEnrollmentService(db, sink)

	student := createUser(t, db, "student")
	course := createCourse(t, db, "HTML", 3)
	createLessons(t, db, course.ID, 3)

	require.NoError(t, svc.Enroll(student.ID, course.ID))
	err := svc.Enroll(student.ID, course.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	var count int64
	require.NoError(t, db.Model(&models.Tracking{}).Where("user_id = ?", student.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	// the repeat call must not notify again
	assert.Len(t, sink.byType(EventEnrolled), 1)
}

func TestEnrollMissingCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, &sinkRecorder{})

	student := createUser(t, db, "student")
	err := svc.Enroll(student.ID, 12345)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnrollCourseWithoutLessons(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, &sinkRecorder{})

	student := createUser(t, db, "student")
	course := createCourse(t, db, "Empty", 5)

	require.NoError(t, svc.Enroll(student.ID, course.ID))

	var count int64
	require.NoError(t, db.Model(&models.Tracking{}).Where("user_id = ?", student.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnrollTwoStudentsIndependently(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, &sinkRecorder{})

	first := createUser(t, db, "first")
	second := createUser(t, db, "second")
	course := createCourse(t, db, "HTML", 2)
	createLessons(t, db, course.ID, 2)

	require.NoError(t, svc.Enroll(first.ID, course.ID))
	require.NoError(t, svc.Enroll(second.ID, course.ID))

	var count int64
	require.NoError(t, db.Model(&models.Tracking{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
}
