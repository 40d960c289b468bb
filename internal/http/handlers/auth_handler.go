package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"roomservice/internal/apperr"
	"roomservice/internal/log"
	"roomservice/internal/services"
	"roomservice/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func setSID(c *fiber.Ctx, sid string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false, // enable behind TLS
		Expires:  expires,
	})
}

// POST /login issues a fresh session id on every successful login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("malformed body")
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return services.ErrBadCreds
	}
	if !validate.Password(req.Password) {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return services.ErrBadCreds
	}

	sid := services.NewSessionID()
	u, err := h.Auth.Login(c.UserContext(), sid, email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			log.Security(c, "auth.login.fail", map[string]any{"email": email})
		}
		return err
	}
	setSID(c, sid, time.Time{})
	log.Audit(c, "auth.login.success", map[string]any{"email": email, "user_id": u.ID})
	return c.JSON(u)
}

// POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies("sid"); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			return err
		}
	}
	setSID(c, "", time.Now().Add(-time.Hour))
	log.Audit(c, "auth.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}
