package controllers

import (
	"errors"
	"strconv"

	"lms/config"
	"lms/models"
	"lms/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ReviewsController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Validate *validator.Validate
}

func NewReviewsController(db *gorm.DB, cfg *config.Config) *ReviewsController {
	return &ReviewsController{DB: db, Cfg: cfg, Validate: validator.New()}
}

// AddReview godoc
// @Summary Leave a review on a course
// @Tags reviews
// @Accept json
// @Produce json
// @Success 200 {object} models.Review
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/reviews [post]
func (rc *ReviewsController) AddReview(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, rc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Content string `json:"content" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := rc.Validate.Struct(input); err != nil {
		return utils.ValidationError(c, fieldErrors(err))
	}

	var course models.Course
	if err := rc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	review := models.Review{
		CourseID: course.ID,
		UserID:   userID,
		Content:  input.Content,
	}
	if err := rc.DB.Create(&review).Error; err != nil {
		return utils.InternalServerError(c, "Could not create review")
	}

	return c.JSON(review)
}

// GetCourseReviews returns all reviews for a course, oldest first.
func (rc *ReviewsController) GetCourseReviews(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var reviews []models.Review
	if err := rc.DB.Where("course_id = ?", courseID).Order("created_at").Find(&reviews).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch reviews")
	}

	return c.JSON(reviews)
}
