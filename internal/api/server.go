package api

import (
	"errors"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"lms.com/internal/config"
	"lms.com/internal/engine"
)

const maxBodySize = 8 << 20

// NewServer 创建 Fiber 应用并注册全部路由
func NewServer(cfg *config.Config, eng *engine.Engine, enforcer *casbin.Enforcer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.AppName,
		BodyLimit:    maxBodySize,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	NewRouter(app, cfg, eng, enforcer).RegisterRoutes()
	return app
}

// errorHandler renders errors that escaped a handler (unknown routes, panics)
// with the same body shape as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"Error": message})
}
