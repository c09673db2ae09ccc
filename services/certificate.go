package services

import (
	"lms/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CertificateService struct {
	DB     *gorm.DB
	Events EventSink
}

func NewCertificateService(db *gorm.DB, events EventSink) *CertificateService {
	return &CertificateService{DB: db, Events: events}
}

type EligibilityResult struct {
	Eligible    bool   `json:"eligible"`
	Certificate string `json:"certificate,omitempty"`
	Message     string `json:"message"`
}

// CheckEligibility decides whether the student has passed every lesson
// of the course and, if so, triggers a certificate notification. The
// counts are recomputed on every call since passed flags mutate
// independently. A course with zero tracked lessons is never eligible,
// so total==fact==0 does not hand out a certificate.
func (s *CertificateService) CheckEligibility(studentID, courseID uint) (*EligibilityResult, error) {
	var total, fact int64
	query := s.DB.Model(&models.Tracking{}).
		Joins("JOIN lessons ON lessons.id = trackings.lesson_id").
		Where("trackings.user_id = ? AND lessons.course_id = ? AND lessons.deleted_at IS NULL", studentID, courseID)

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.Where("trackings.passed = ?", true).Count(&fact).Error; err != nil {
		return nil, err
	}

	if total == 0 || total != fact {
		return &EligibilityResult{
			Eligible: false,
			Message:  "You have not completed the course yet",
		}, nil
	}

	serial := uuid.NewString()
	s.Events.Dispatch(Event{
		Type:        EventCertificateIssued,
		UserID:      studentID,
		CourseID:    courseID,
		Certificate: serial,
		Message:     "Congratulations! You have completed the course. Your certificate is attached.",
	})

	return &EligibilityResult{
		Eligible:    true,
		Certificate: serial,
		Message:     "The certificate has been sent to your email",
	}, nil
}
