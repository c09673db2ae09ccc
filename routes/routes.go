package routes

import (
	"lms/cache"
	"lms/config"
	"lms/controllers"
	"lms/middleware"
	"lms/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
)

// Deps carries the shared collaborators the controllers are built
// around: the read-through cache, the per-visitor session store and
// the notification sink.
type Deps struct {
	Cache    cache.Cache
	Sessions *session.Store
	Events   services.EventSink
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, deps Deps) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	authorMiddleware := middleware.RoleMiddleware(db, cfg, "author")
	adminMiddleware := middleware.RoleMiddleware(db, cfg)

	// Core services
	lessonService := services.NewLessonService(db, deps.Cache, deps.Events)
	enrollmentService := services.NewEnrollmentService(db, deps.Events)
	progressService := services.NewProgressService(db)
	certificateService := services.NewCertificateService(db, deps.Events)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg, deps.Cache, deps.Sessions, lessonService)
	courses := app.Group("/api/courses")
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/favourites", coursesController.ListFavourites)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Get("/:id/lessons", coursesController.ListLessons)
	courses.Post("/", authorMiddleware, coursesController.CreateCourse)
	courses.Put("/:id", authorMiddleware, coursesController.UpdateCourse)
	courses.Delete("/:id", authorMiddleware, coursesController.DeleteCourse)
	courses.Post("/:id/lessons", authorMiddleware, coursesController.AddLesson)
	courses.Post("/:id/favourite", coursesController.AddFavourite)
	courses.Delete("/:id/favourite", coursesController.RemoveFavourite)
	app.Post("/api/settings", coursesController.SaveSettings)

	// Tracking routes
	trackingController := controllers.NewTrackingController(db, cfg, enrollmentService, progressService, certificateService)
	courses.Post("/:id/enroll", authMiddleware, trackingController.Enroll)
	courses.Get("/:id/progress", authMiddleware, trackingController.GetStudentProgress)
	courses.Get("/:id/students/:studentId/progress", authorMiddleware, trackingController.GetStudentProgressByID)
	courses.Post("/:id/certificate", authMiddleware, trackingController.GetCertificate)
	app.Get("/api/trackings", authMiddleware, trackingController.GetMyTrackings)
	app.Patch("/api/trackings", authorMiddleware, trackingController.UpdatePassed)

	// Reviews routes
	reviewsController := controllers.NewReviewsController(db, cfg)
	courses.Get("/:id/reviews", reviewsController.GetCourseReviews)
	courses.Post("/:id/reviews", authMiddleware, reviewsController.AddReview)

	// Analytics routes
	analyticsController := controllers.NewAnalyticsController(db, cfg, deps.Sessions, progressService)
	app.Get("/api/analytics", adminMiddleware, analyticsController.GetAnalytics)
	app.Get("/api/analytics/:id", adminMiddleware, analyticsController.GetCourseAnalytics)
}
