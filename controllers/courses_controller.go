package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"lms/cache"
	"lms/config"
	"lms/models"
	"lms/services"
	"lms/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    cache.Cache
	Sessions *session.Store
	Lessons  *services.LessonService
	Views    services.ViewCounter
	Validate *validator.Validate
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, c cache.Cache, sessions *session.Store, lessons *services.LessonService) *CoursesController {
	return &CoursesController{
		DB:       db,
		Cfg:      cfg,
		Cache:    c,
		Sessions: sessions,
		Lessons:  lessons,
		Validate: validator.New(),
	}
}

// isCourseAuthor reports whether the user is listed among the course's
// authors.
func isCourseAuthor(db *gorm.DB, courseID, userID uint) bool {
	var count int64
	db.Table("course_authors").
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count)
	return count > 0
}

func canManageCourse(db *gorm.DB, courseID, userID uint) bool {
	if isCourseAuthor(db, courseID, userID) {
		return true
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return false
	}
	return user.Role == "admin"
}

// ListCourses godoc
// @Summary List courses
// @Description Returns the course catalog with search, ordering and pagination
// @Tags courses
// @Produce json
// @Success 200 {object} utils.PaginatedResponse
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	query := services.CourseQuery{
		Search:   c.Query("search"),
		OrderBy:  c.Query("order_by"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", cc.pageSizeFromCookie(c)),
	}
	if err := query.Validate(); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	// The plain catalog is served from the cache; filtered or re-sorted
	// requests go to the store through the validated query spec.
	if query.Search == "" && query.OrderBy == "title" {
		return cc.listFromCache(c, query)
	}

	var courses []models.Course
	if err := query.Apply(cc.DB.Model(&models.Course{})).Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var total int64
	if err := query.Filter(cc.DB.Model(&models.Course{})).Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Paginate(c, courses, total, query.Page, query.PageSize)
}

func (cc *CoursesController) listFromCache(c *fiber.Ctx, query services.CourseQuery) error {
	data, err := cc.Cache.GetOrSet(c.Context(), cache.CoursesKey, cc.Cfg.CacheTTL, func() ([]byte, error) {
		var courses []models.Course
		if err := cc.DB.Order("title").Find(&courses).Error; err != nil {
			return nil, err
		}
		return json.Marshal(courses)
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var courses []models.Course
	if err := json.Unmarshal(data, &courses); err != nil {
		return utils.InternalServerError(c, "Could not decode cached courses")
	}

	total := int64(len(courses))
	start := (query.Page - 1) * query.PageSize
	if start > len(courses) {
		start = len(courses)
	}
	end := start + query.PageSize
	if end > len(courses) {
		end = len(courses)
	}

	return utils.Paginate(c, courses[start:end], total, query.Page, query.PageSize)
}

func (cc *CoursesController) pageSizeFromCookie(c *fiber.Ctx) int {
	if raw := c.Cookies("paginate_by"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			return size
		}
	}
	return 5
}

// SaveSettings persists the visitor's preferred page size in a cookie.
func (cc *CoursesController) SaveSettings(c *fiber.Ctx) error {
	var input struct {
		PageSize int `json:"page_size" validate:"gte=1,lte=50"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := cc.Validate.Struct(input); err != nil {
		return utils.BadRequest(c, "Page size must be between 1 and 50")
	}

	c.Cookie(&fiber.Cookie{
		Name:     "paginate_by",
		Value:    strconv.Itoa(input.PageSize),
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{
		"message": "Settings saved",
	})
}

// GetCourseDetails godoc
// @Summary Course detail page data
// @Description Returns the course, its lessons and reviews; viewing counts towards the session view counter
// @Tags courses
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.Preload("Authors").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	lessons, err := cc.Lessons.List(c.Context(), course.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not fetch lessons")
	}

	var reviews []models.Review
	if err := cc.DB.Where("course_id = ?", course.ID).Order("created_at").Find(&reviews).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch reviews")
	}

	sess, err := cc.Sessions.Get(c)
	if err != nil {
		return utils.InternalServerError(c, "Could not open session")
	}
	views := cc.Views.RecordView(sess, course.ID)
	if err := sess.Save(); err != nil {
		return utils.InternalServerError(c, "Could not save session")
	}

	return c.JSON(fiber.Map{
		"course":  course,
		"lessons": lessons,
		"reviews": reviews,
		"views":   views,
	})
}

type courseInput struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	StartDate    string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	Duration     int     `json:"duration" validate:"gte=0"`
	Price        float64 `json:"price" validate:"gte=0"`
	CountLessons int     `json:"count_lessons" validate:"gte=1"`
}

// CreateCourse godoc
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input courseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := cc.Validate.Struct(input); err != nil {
		return utils.ValidationError(c, fieldErrors(err))
	}

	startDate, _ := time.Parse("2006-01-02", input.StartDate)
	course := models.Course{
		Title:        input.Title,
		Description:  input.Description,
		StartDate:    startDate,
		Duration:     input.Duration,
		Price:        input.Price,
		CountLessons: input.CountLessons,
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&course).Error; err != nil {
			return err
		}
		var author models.User
		if err := tx.First(&author, userID).Error; err != nil {
			return err
		}
		return tx.Model(&course).Association("Authors").Append(&author)
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	if err := cc.Cache.Invalidate(c.Context(), cache.CoursesKey); err != nil {
		return utils.InternalServerError(c, "Could not invalidate cache")
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

// UpdateCourse applies a partial update by one of the course's authors.
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if !canManageCourse(cc.DB, course.ID, userID) {
		return utils.Forbidden(c, "You don't have permission to edit this course")
	}

	var input struct {
		Title        string  `json:"title"`
		Description  string  `json:"description"`
		StartDate    string  `json:"start_date"`
		Duration     int     `json:"duration"`
		Price        float64 `json:"price"`
		CountLessons int     `json:"count_lessons"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Title != "" {
		course.Title = input.Title
	}
	if input.Description != "" {
		course.Description = input.Description
	}
	if input.StartDate != "" {
		startDate, err := time.Parse("2006-01-02", input.StartDate)
		if err != nil {
			return utils.BadRequest(c, "Invalid start_date format. Use YYYY-MM-DD")
		}
		course.StartDate = startDate
	}
	if input.Duration != 0 {
		course.Duration = input.Duration
	}
	if input.Price != 0 {
		course.Price = input.Price
	}
	if input.CountLessons != 0 {
		course.CountLessons = input.CountLessons
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}
	if err := cc.Cache.Invalidate(c.Context(), cache.CoursesKey, cache.CourseLessonsKey(course.ID)); err != nil {
		return utils.InternalServerError(c, "Could not invalidate cache")
	}

	return c.JSON(fiber.Map{
		"message": "Course updated",
		"course":  course,
	})
}

// DeleteCourse removes the course with its lessons and their tracking
// records in one transaction, so no orphaned trackings survive.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if !canManageCourse(cc.DB, course.ID, userID) {
		return utils.Forbidden(c, "You don't have permission to delete this course")
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		var lessonIDs []uint
		if err := tx.Model(&models.Lesson{}).Where("course_id = ?", course.ID).Pluck("id", &lessonIDs).Error; err != nil {
			return err
		}
		if len(lessonIDs) > 0 {
			if err := tx.Unscoped().Where("lesson_id IN ?", lessonIDs).Delete(&models.Tracking{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&course).Association("Authors").Clear(); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&course).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete course")
	}

	if err := cc.Cache.Invalidate(c.Context(), cache.CoursesKey, cache.CourseLessonsKey(course.ID)); err != nil {
		return utils.InternalServerError(c, "Could not invalidate cache")
	}

	return c.JSON(fiber.Map{
		"message": "Course deleted",
	})
}

// AddLesson godoc
// @Summary Add a lesson to a course
// @Description Rejected with 400 once the course's declared lesson quota is reached
// @Tags courses
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/lessons [post]
func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	if !canManageCourse(cc.DB, uint(courseID), userID) {
		return utils.Forbidden(c, "You don't have permission to add lessons to this course")
	}

	var input services.LessonInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := cc.Validate.Struct(input); err != nil {
		return utils.ValidationError(c, fieldErrors(err))
	}

	lesson, err := cc.Lessons.Create(uint(courseID), input)
	if err != nil {
		var quotaErr *services.QuotaError
		switch {
		case errors.As(err, &quotaErr):
			return utils.BadRequest(c, quotaErr.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.NotFound(c, "Course not found")
		default:
			return utils.InternalServerError(c, "Could not create lesson")
		}
	}

	return c.JSON(fiber.Map{
		"message": "Lesson added",
		"lesson":  lesson,
	})
}

// ListLessons returns a course's lessons through the lesson cache.
func (cc *CoursesController) ListLessons(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	lessons, err := cc.Lessons.List(c.Context(), course.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not fetch lessons")
	}
	return c.JSON(lessons)
}

// AddFavourite bookmarks a course in the visitor's session.
func (cc *CoursesController) AddFavourite(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	sess, err := cc.Sessions.Get(c)
	if err != nil {
		return utils.InternalServerError(c, "Could not open session")
	}
	cc.Views.AddFavourite(sess, uint(courseID))
	if err := sess.Save(); err != nil {
		return utils.InternalServerError(c, "Could not save session")
	}
	return c.JSON(fiber.Map{
		"message": "Course added to favourites",
	})
}

func (cc *CoursesController) RemoveFavourite(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	sess, err := cc.Sessions.Get(c)
	if err != nil {
		return utils.InternalServerError(c, "Could not open session")
	}
	cc.Views.RemoveFavourite(sess, uint(courseID))
	if err := sess.Save(); err != nil {
		return utils.InternalServerError(c, "Could not save session")
	}
	return c.JSON(fiber.Map{
		"message": "Course removed from favourites",
	})
}

// ListFavourites returns the bookmarked courses of this session.
func (cc *CoursesController) ListFavourites(c *fiber.Ctx) error {
	sess, err := cc.Sessions.Get(c)
	if err != nil {
		return utils.InternalServerError(c, "Could not open session")
	}

	ids := cc.Views.Favourites(sess)
	if len(ids) == 0 {
		return c.JSON([]models.Course{})
	}

	var courses []models.Course
	if err := cc.DB.Where("id IN ?", ids).Order("title").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(courses)
}

func fieldErrors(err error) map[string]string {
	result := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			result[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return result
}
