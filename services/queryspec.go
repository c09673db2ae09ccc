package services

import (
	"fmt"

	"gorm.io/gorm"
)

// CourseQuery is a validated query specification for course listings.
// Sort keys and search fields are enumerated here; arbitrary field
// names from the request never reach the store.
type CourseQuery struct {
	Search   string
	OrderBy  string
	Page     int
	PageSize int
}

var courseOrderings = map[string]string{
	"title":       "title",
	"-title":      "title DESC",
	"price":       "price",
	"-price":      "price DESC",
	"start_date":  "start_date",
	"-start_date": "start_date DESC",
}

const (
	defaultPageSize = 5
	maxPageSize     = 50
)

// Validate normalizes paging and rejects unknown sort keys.
func (q *CourseQuery) Validate() error {
	if q.OrderBy == "" {
		q.OrderBy = "title"
	}
	if _, ok := courseOrderings[q.OrderBy]; !ok {
		return fmt.Errorf("unknown sort key %q", q.OrderBy)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		q.PageSize = defaultPageSize
	}
	return nil
}

// Filter applies only the search criteria, for counting totals.
func (q *CourseQuery) Filter(db *gorm.DB) *gorm.DB {
	if q.Search == "" {
		return db
	}
	pattern := "%" + q.Search + "%"
	return db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)
}

// Apply resolves the spec into a store query. Validate must have been
// called first.
func (q *CourseQuery) Apply(db *gorm.DB) *gorm.DB {
	return q.Filter(db).
		Order(courseOrderings[q.OrderBy]).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize)
}
