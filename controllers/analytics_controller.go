package controllers

import (
	"errors"
	"strconv"
	"time"

	"lms/config"
	"lms/models"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
)

type AnalyticsController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Sessions *session.Store
	Progress *services.ProgressService
	Views    services.ViewCounter
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config, sessions *session.Store, progress *services.ProgressService) *AnalyticsController {
	return &AnalyticsController{
		DB:       db,
		Cfg:      cfg,
		Sessions: sessions,
		Progress: progress,
	}
}

// AnalyticReport is one course's analytics row: views come from the
// caller's session, the rest from tracking records.
type AnalyticReport struct {
	Course        string  `json:"course"`
	Views         int     `json:"views"`
	CountStudents int64   `json:"count_students"`
	PercentPassed float64 `json:"percent_passed"`
}

func (ac *AnalyticsController) buildReport(sess *session.Session, course *models.Course) (*AnalyticReport, error) {
	countStudents, err := ac.Progress.EnrolledStudentCount(course.ID)
	if err != nil {
		return nil, err
	}
	percentPassed, err := ac.Progress.CourseCompletion(course.ID)
	if err != nil {
		return nil, err
	}
	return &AnalyticReport{
		Course:        course.Title,
		Views:         ac.Views.ViewCount(sess, course.ID),
		CountStudents: countStudents,
		PercentPassed: percentPassed,
	}, nil
}

// GetAnalytics godoc
// @Summary Analytics report over all courses
// @Tags analytics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /analytics [get]
func (ac *AnalyticsController) GetAnalytics(c *fiber.Ctx) error {
	var courses []models.Course
	if err := ac.DB.Order("title").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	sess, err := ac.Sessions.Get(c)
	if err != nil {
		return utils.InternalServerError(c, "Could not open session")
	}

	reports := make([]AnalyticReport, 0, len(courses))
	for i := range courses {
		report, err := ac.buildReport(sess, &courses[i])
		if err != nil {
			return utils.InternalServerError(c, "Could not build report")
		}
		reports = append(reports, *report)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"report_date": time.Now().Format(time.RFC3339),
		"data":        reports,
	})
}

// GetCourseAnalytics returns the analytics report for one course:
// completion percentage, session view count, enrolled student count.
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	sess, err := ac.Sessions.Get(c)
	if err != nil {
		return utils.InternalServerError(c, "Could not open session")
	}

	report, err := ac.buildReport(sess, &course)
	if err != nil {
		return utils.InternalServerError(c, "Could not build report")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"report_date": time.Now().Format(time.RFC3339),
		"data":        report,
	})
}
