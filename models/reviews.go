package models

import "gorm.io/gorm"

// Review is append-only, there is no uniqueness per (user, course).
type Review struct {
	gorm.Model
	CourseID uint `gorm:"index;not null"`
	UserID   uint `gorm:"not null"`
	Content  string
}
