package handlers

import (
	"github.com/gofiber/fiber/v2"

	"roomservice/internal/apperr"
	applog "roomservice/internal/log"
	"roomservice/internal/services"
	"roomservice/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartLineReq struct {
	ProductID int64 `json:"product_id" form:"product_id"`
	Quantity  *int  `json:"quantity" form:"quantity"`
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.GetCart(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

// POST /api/v1/cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var req cartLineReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("malformed body")
	}
	if req.ProductID < 1 {
		return apperr.Validation("product_id is required")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty > validate.MaxQty {
		return apperr.Validation("quantity may not exceed %d", validate.MaxQty)
	}

	u := currentUser(c)
	line, err := h.Cart.AddLine(c.UserContext(), u.ID, req.ProductID, qty)
	if err != nil {
		return err
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": req.ProductID, "qty": qty})
	return c.Status(fiber.StatusCreated).JSON(line)
}

// PATCH /api/v1/cart/:productId
func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return apperr.Validation("bad product id")
	}
	var req cartLineReq
	if err := c.BodyParser(&req); err != nil || req.Quantity == nil {
		return apperr.Validation("quantity is required")
	}
	if *req.Quantity > validate.MaxQty {
		return apperr.Validation("quantity may not exceed %d", validate.MaxQty)
	}
	line, err := h.Cart.SetQuantity(c.UserContext(), currentUser(c).ID, pid, *req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(line)
}

// DELETE /api/v1/cart/:productId
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return apperr.Validation("bad product id")
	}
	if err := h.Cart.RemoveLine(c.UserContext(), currentUser(c).ID, pid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	u := currentUser(c)
	cv, err := h.Cart.GetCart(c.UserContext(), u.ID)
	if err != nil {
		return err
	}
	if cv.CartID == 0 {
		return apperr.NotFound("user %d has no cart", u.ID)
	}
	if err := h.Cart.Clear(c.UserContext(), cv.CartID); err != nil {
		return err
	}
	applog.Info(c, "cart.clear", map[string]any{"cart_id": cv.CartID})
	return c.SendStatus(fiber.StatusNoContent)
}
