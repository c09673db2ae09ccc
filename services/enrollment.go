package services

import (
	"database/sql"
	"errors"
	"fmt"

	"lms/models"

	"gorm.io/gorm"
)

// ErrAlreadyEnrolled is informational, not fatal: a second enroll call
// for the same course leaves the first enrollment untouched.
var ErrAlreadyEnrolled = errors.New("you are already enrolled in this course")

type EnrollmentService struct {
	DB     *gorm.DB
	Events EventSink
}

func NewEnrollmentService(db *gorm.DB, events EventSink) *EnrollmentService {
	return &EnrollmentService{DB: db, Events: events}
}

// Enroll creates one Tracking record per lesson of the course for the
// student, all with passed=false, as a single all-or-nothing batch. The
// existence check and the bulk insert run in one serializable
// transaction so two concurrent calls cannot double-enroll.
func (s *EnrollmentService) Enroll(studentID, courseID uint) error {
	var course models.Course
	if err := s.DB.First(&course, courseID).Error; err != nil {
		return err
	}

	// sqlite transactions are serializable already; only postgres needs
	// the isolation level raised explicitly
	var txOpts []*sql.TxOptions
	if s.DB.Dialector.Name() == "postgres" {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Tracking{}).
			Joins("JOIN lessons ON lessons.id = trackings.lesson_id").
			Where("trackings.user_id = ? AND lessons.course_id = ? AND lessons.deleted_at IS NULL", studentID, courseID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		var lessons []models.Lesson
		if err := tx.Where("course_id = ?", courseID).Order("id").Find(&lessons).Error; err != nil {
			return err
		}
		if len(lessons) == 0 {
			return nil
		}

		records := make([]models.Tracking, 0, len(lessons))
		for _, lesson := range lessons {
			records = append(records, models.Tracking{
				LessonID: lesson.ID,
				UserID:   studentID,
				Passed:   false,
			})
		}
		return tx.Create(&records).Error
	}, txOpts...)
	if err != nil {
		return err
	}

	s.Events.Dispatch(Event{
		Type:     EventEnrolled,
		UserID:   studentID,
		CourseID: courseID,
		Message: fmt.Sprintf("You have been enrolled in %q. The first lesson opens on %s. Don't miss it!",
			course.Title, course.StartDate.Format("2006-01-02")),
	})
	return nil
}
