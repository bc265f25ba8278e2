package webapi

import (
	"time"

	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp creates the HTTP ingress for deps.
func NewApp(deps config.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Default to 500 if status code cannot be determined
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return ErrorResponseJSON(c, status, "Internal Server Error", err.Error())
		},
	})

	maxRequests, window := 100, time.Minute
	if deps.Config != nil && deps.Config.RateLimit != nil {
		maxRequests, window = deps.Config.RateLimit.MaxRequests, deps.Config.RateLimit.Window
	}
	app.Use(limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return ErrorResponseJSON(c, fiber.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded")
		},
	}))
	app.Use(recover.New())
	if deps.Config == nil || deps.Config.Env != "test" {
		app.Use(logger.New())
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("App is working! 🚀")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(Response{Status: fiber.StatusOK, Message: "ok"})
	})

	EventRoutes(app, deps)
	RoomRoutes(app, deps)
	JournalRoutes(app, deps)

	return app
}
