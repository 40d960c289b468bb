package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	applog "roomservice/internal/log"
)

type AppConfig struct {
	RateLimit  int  // requests per minute per client, 0 disables
	LoginLimit int  // login attempts per 10 minutes per client, 0 disables
	AccessLog  bool // fiber access log on stdout
}

func NewApp(d *Deps, cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB
	})

	app.Use(requestid.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz"
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.global.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
			},
		}))
	}
	app.Use(AttachUser(d.Auth))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	login := []fiber.Handler{}
	if cfg.LoginLimit > 0 {
		login = append(login, limiter.New(limiter.Config{
			Max:        cfg.LoginLimit,
			Expiration: 10 * time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.login.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
			},
		}))
	}
	app.Post("/login", append(login, d.AuthHandler.Login)...)
	app.Post("/logout", d.AuthHandler.Logout)

	api := app.Group("/api/v1")

	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Patch("/products/:id", RequireAdmin(), d.ProductHandler.Update)
	api.Delete("/products/:id", RequireAdmin(), d.ProductHandler.Delete)
	api.Post("/products/:id/restore", RequireAdmin(), d.ProductHandler.Restore)

	cart := api.Group("/cart", RequireUser())
	cart.Get("/", d.CartHandler.View)
	cart.Post("/", d.CartHandler.Add)
	cart.Delete("/", d.CartHandler.Clear)
	cart.Patch("/:productId", d.CartHandler.SetQuantity)
	cart.Delete("/:productId", d.CartHandler.Remove)

	orders := api.Group("/orders", RequireUser())
	orders.Post("/", d.OrderHandler.Place)
	orders.Get("/", d.OrderHandler.List)
	orders.Get("/:id", d.OrderHandler.View)
	orders.Patch("/:id", d.OrderHandler.Update)
	orders.Post("/:id/status", RequireAdmin(), d.OrderHandler.SetStatus)
	orders.Post("/:id/cancel", d.OrderHandler.Cancel)

	api.Get("/admin/stats", RequireAdmin(), d.AdminHandler.Stats)

	return app
}
