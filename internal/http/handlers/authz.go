package handlers

import (
	"github.com/gofiber/fiber/v2"

	"roomservice/internal/apperr"
	"roomservice/internal/domain"
	applog "roomservice/internal/log"
	"roomservice/internal/services"
)

// AttachUser resolves the sid cookie, if any, and stores the user in Locals.
// It never rejects a request; RequireUser and RequireAdmin do that.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
				c.Locals("uid", u.ID)
			}
		}
		return c.Next()
	}
}

func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return apperr.Unauthorized("login required")
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return apperr.Unauthorized("login required")
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return apperr.Forbidden("admin only")
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// canSeeOrder lets admins see every order and users the orders they own or
// placed for someone else.
func canSeeOrder(u *domain.User, o domain.Order) bool {
	return u.IsAdmin() || o.UserID == u.ID || o.PlacedBy == u.ID
}
