package main

import (
	"log"

	"lms/cache"
	"lms/config"
	"lms/middleware"
	"lms/routes"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Read-through cache: Redis when configured, in-process otherwise
	var store cache.Cache
	if cfg.RedisAddr != "" {
		store = cache.NewRedisCache(cfg.RedisAddr)
	} else {
		store = cache.NewMemoryCache()
	}

	// Per-visitor sessions (view counters, favourites)
	sessions := session.New()

	// Fire-and-forget notification dispatch
	dispatcher := services.NewDispatcher(&services.LogNotifier{Logger: logger}, logger)
	defer dispatcher.Close()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, routes.Deps{
		Cache:    store,
		Sessions: sessions,
		Events:   dispatcher,
	})

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
