package controllers

import (
	"errors"
	"strconv"

	"lms/config"
	"lms/models"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TrackingController struct {
	DB           *gorm.DB
	Cfg          *config.Config
	Enrollment   *services.EnrollmentService
	Progress     *services.ProgressService
	Certificates *services.CertificateService
}

func NewTrackingController(db *gorm.DB, cfg *config.Config, enrollment *services.EnrollmentService, progress *services.ProgressService, certificates *services.CertificateService) *TrackingController {
	return &TrackingController{
		DB:           db,
		Cfg:          cfg,
		Enrollment:   enrollment,
		Progress:     progress,
		Certificates: certificates,
	}
}

// Enroll godoc
// @Summary Enroll the current user into a course
// @Description Creates one tracking record per lesson; repeat calls answer "already enrolled"
// @Tags tracking
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [post]
func (tc *TrackingController) Enroll(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	if err := tc.Enrollment.Enroll(userID, uint(courseID)); err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyEnrolled):
			// informational, not a failure
			return c.JSON(fiber.Map{
				"message": "You are already enrolled in this course",
			})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.NotFound(c, "Course not found")
		default:
			return utils.InternalServerError(c, "Could not enroll")
		}
	}

	return c.JSON(fiber.Map{
		"message": "You have been enrolled in the course",
	})
}

// GetMyTrackings returns the current user's tracking records with
// lesson and course headers, the "my progress" view.
func (tc *TrackingController) GetMyTrackings(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var trackings []models.Tracking
	if err := tc.DB.Preload("Lesson").
		Where("user_id = ?", userID).
		Order("id").
		Find(&trackings).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(trackings)
}

// GetStudentProgress godoc
// @Summary Completion percentage of a student in a course
// @Tags tracking
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /courses/{id}/progress [get]
func (tc *TrackingController) GetStudentProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	percent, err := tc.Progress.StudentProgress(userID, uint(courseID))
	if err != nil {
		return utils.InternalServerError(c, "Could not compute progress")
	}

	return c.JSON(fiber.Map{
		"course_id": courseID,
		"progress":  percent,
	})
}

// GetStudentProgressByID is the author/admin variant: progress of any
// student in the course.
func (tc *TrackingController) GetStudentProgressByID(c *fiber.Ctx) error {
	callerID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	studentID, err := strconv.Atoi(c.Params("studentId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid student ID")
	}

	if !canManageCourse(tc.DB, uint(courseID), callerID) {
		return utils.Forbidden(c, "You don't have permission to view this course's progress")
	}

	percent, err := tc.Progress.StudentProgress(uint(studentID), uint(courseID))
	if err != nil {
		return utils.InternalServerError(c, "Could not compute progress")
	}

	return c.JSON(fiber.Map{
		"course_id":  courseID,
		"student_id": studentID,
		"progress":   percent,
	})
}

type passedUpdate struct {
	ID     uint `json:"id"`
	Passed bool `json:"passed"`
}

// UpdatePassed lets an author mark lessons of their courses as passed
// (or not) for students, by tracking record id.
func (tc *TrackingController) UpdatePassed(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var updates []passedUpdate
	if err := c.BodyParser(&updates); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var updated []models.Tracking
	for _, update := range updates {
		var tracking models.Tracking
		if err := tc.DB.Preload("Lesson").First(&tracking, update.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound(c, "Tracking record not found")
			}
			return utils.InternalServerError(c, "Could not query database")
		}

		if !canManageCourse(tc.DB, tracking.Lesson.CourseID, userID) {
			return utils.Forbidden(c, "You don't have permission to grade this course")
		}

		tracking.Passed = update.Passed
		if err := tc.DB.Save(&tracking).Error; err != nil {
			return utils.InternalServerError(c, "Could not update tracking")
		}
		updated = append(updated, tracking)
	}

	return c.JSON(updated)
}

// GetCertificate godoc
// @Summary Request a course certificate
// @Description Eligible once every lesson of the course is passed; triggers the certificate notification
// @Tags tracking
// @Produce json
// @Success 200 {object} services.EligibilityResult
// @Security ApiKeyAuth
// @Router /courses/{id}/certificate [post]
func (tc *TrackingController) GetCertificate(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	result, err := tc.Certificates.CheckEligibility(userID, uint(courseID))
	if err != nil {
		return utils.InternalServerError(c, "Could not check eligibility")
	}

	return c.JSON(result)
}
