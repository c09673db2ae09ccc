package models

import "gorm.io/gorm"

// Tracking is one student's completion state for one lesson. Records are
// bulk-created at enrollment time, one per lesson of the course, and only
// the Passed flag mutates afterwards. At most one record may exist per
// (user, lesson) pair; enrollment checks for existing records before
// inserting.
type Tracking struct {
	gorm.Model
	LessonID uint `gorm:"index;not null"`
	Lesson   Lesson
	UserID   uint `gorm:"index;not null"`
	Passed   bool `gorm:"default:false"`
}
