package models

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title        string `gorm:"not null"`
	Description  string
	StartDate    time.Time
	Duration     int     // in weeks
	Price        float64 `gorm:"default:0"`
	CountLessons int     // declared lesson quota, checked on every lesson creation
	Authors      []User  `gorm:"many2many:course_authors"`
	Lessons      []Lesson
}

type Lesson struct {
	gorm.Model
	CourseID uint   `gorm:"index;not null"`
	Name     string `gorm:"not null"`
	Preview  string `gorm:"size:200"`
}
