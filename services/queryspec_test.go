package services

import (
	"testing"
	"time"

	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseQueryRejectsUnknownSortKey(t *testing.T) {
	query := CourseQuery{OrderBy: "passed"}
	assert.Error(t, query.Validate())

	// request parameters never become raw column names
	query = CourseQuery{OrderBy: "id; DROP TABLE courses"}
	assert.Error(t, query.Validate())
}

func TestCourseQueryDefaults(t *testing.T) {
	query := CourseQuery{Page: -1, PageSize: 1000}
	require.NoError(t, query.Validate())
	assert.Equal(t, "title", query.OrderBy)
	assert.Equal(t, 1, query.Page)
	assert.Equal(t, defaultPageSize, query.PageSize)
}

func TestCourseQuerySearchAndOrder(t *testing.T) {
	db := newTestDB(t)
	seed := []models.Course{
		{Title: "Go Basics", Description: "backend fundamentals", Price: 300, StartDate: time.Now()},
		{Title: "HTML", Description: "markup for beginners", Price: 100, StartDate: time.Now()},
		{Title: "Advanced Go", Description: "concurrency patterns", Price: 500, StartDate: time.Now()},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	query := CourseQuery{Search: "go", OrderBy: "-price"}
	require.NoError(t, query.Validate())

	var courses []models.Course
	require.NoError(t, query.Apply(db.Model(&models.Course{})).Find(&courses).Error)
	require.Len(t, courses, 2)
	assert.Equal(t, "Advanced Go", courses[0].Title)
	assert.Equal(t, "Go Basics", courses[1].Title)
}

func TestCourseQueryPagination(t *testing.T) {
	db := newTestDB(t)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, db.Create(&models.Course{Title: title, StartDate: time.Now()}).Error)
	}

	query := CourseQuery{OrderBy: "title", Page: 2, PageSize: 2}
	require.NoError(t, query.Validate())

	var courses []models.Course
	require.NoError(t, query.Apply(db.Model(&models.Course{})).Find(&courses).Error)
	require.Len(t, courses, 2)
	assert.Equal(t, "c", courses[0].Title)
	assert.Equal(t, "d", courses[1].Title)
}
