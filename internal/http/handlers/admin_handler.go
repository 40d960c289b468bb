package handlers

import (
	"github.com/gofiber/fiber/v2"

	"roomservice/internal/services"
)

type AdminHandler struct {
	Dashboard *services.DashboardService
}

// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Dashboard.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}
