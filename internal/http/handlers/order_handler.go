package handlers

import (
	"github.com/gofiber/fiber/v2"

	"roomservice/internal/apperr"
	"roomservice/internal/domain"
	applog "roomservice/internal/log"
	"roomservice/internal/services"
	"roomservice/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
}

type placeOrderReq struct {
	UserID *int64  `json:"user_id"`
	RoomID *int64  `json:"room_id"`
	Notes  *string `json:"notes"`
}

// POST /api/v1/orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	u := currentUser(c)
	var req placeOrderReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("malformed body")
	}

	in := services.Checkout{UserID: u.ID, ActorID: u.ID}
	if req.UserID != nil && *req.UserID != u.ID {
		if !u.IsAdmin() {
			applog.Security(c, "order.place.on_behalf.denied", map[string]any{"target_user": *req.UserID})
			return apperr.Forbidden("only staff may order for another user")
		}
		in.UserID = *req.UserID
	}
	switch {
	case req.RoomID != nil:
		in.RoomID = *req.RoomID
	case in.UserID == u.ID && u.RoomID != nil:
		in.RoomID = *u.RoomID
	default:
		return apperr.Validation("room_id is required")
	}
	if req.Notes != nil {
		notes, ok := validate.Notes(*req.Notes)
		if !ok {
			return apperr.Validation("notes may not exceed %d characters", validate.MaxNotes)
		}
		if notes != "" {
			in.Notes = &notes
		}
	}

	ov, err := h.Order.CreateFromCart(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id":  ov.ID,
		"user_id":   ov.UserID,
		"placed_by": ov.PlacedBy,
		"total":     ov.TotalPrice.StringFixed(2),
	})
	return c.Status(fiber.StatusCreated).JSON(ov)
}

// GET /api/v1/orders
func (h *OrderHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	page, size, err := validate.Page(c.Query("page"), c.Query("size"))
	if err != nil {
		return err
	}
	sorts, err := validate.Sorts(c.Query("sort"))
	if err != nil {
		return err
	}

	var f services.OrderFilter
	if s := c.Query("status"); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			return err
		}
		f.Status = &st
	}
	if f.From, err = validate.Time(c.Query("from")); err != nil {
		return err
	}
	if f.To, err = validate.Time(c.Query("to")); err != nil {
		return err
	}
	switch {
	case !u.IsAdmin():
		f.UserID = &u.ID
	case c.Query("user_id") != "":
		id, ok := validate.ID(c.Query("user_id"))
		if !ok {
			return apperr.Validation("bad user_id")
		}
		f.UserID = &id
	}

	res, err := h.Order.ListOrders(c.UserContext(), f, sorts, page, size)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apperr.NotFound("order not found")
	}
	ov, err := h.Order.GetOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !canSeeOrder(currentUser(c), ov.Order) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return apperr.NotFound("order %d not found", id)
	}
	return c.JSON(ov)
}

type patchOrderReq struct {
	Notes  *string `json:"notes"`
	RoomID *int64  `json:"room_id"`
	Status *string `json:"status"`
}

// PATCH /api/v1/orders/:id edits notes or room. Status changes go through
// the status endpoint.
func (h *OrderHandler) Update(c *fiber.Ctx) error {
	id, err := h.ownedOrder(c)
	if err != nil {
		return err
	}
	var req patchOrderReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("malformed body")
	}
	if req.Status != nil {
		return apperr.Validation("use POST /api/v1/orders/%d/status to change status", id)
	}
	if req.Notes != nil {
		if _, ok := validate.Notes(*req.Notes); !ok {
			return apperr.Validation("notes may not exceed %d characters", validate.MaxNotes)
		}
	}
	o, err := h.Order.UpdateDetails(c.UserContext(), id, services.OrderPatch{Notes: req.Notes, RoomID: req.RoomID})
	if err != nil {
		return err
	}
	applog.Audit(c, "order.update", map[string]any{"order_id": id})
	return c.JSON(o)
}

// POST /api/v1/orders/:id/status (admin)
func (h *OrderHandler) SetStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apperr.NotFound("order not found")
	}
	var req struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return apperr.Validation("status is required")
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	o, err := h.Order.Transition(c.UserContext(), id, to)
	if err != nil {
		return err
	}
	applog.Audit(c, "order.status", map[string]any{"order_id": id, "status": string(o.Status)})
	return c.JSON(o)
}

// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := h.ownedOrder(c)
	if err != nil {
		return err
	}
	o, err := h.Order.Cancel(c.UserContext(), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": id})
	return c.JSON(o)
}

// ownedOrder resolves :id and checks the caller may act on it. Orders the
// caller may not see are reported as missing.
func (h *OrderHandler) ownedOrder(c *fiber.Ctx) (int64, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return 0, apperr.NotFound("order not found")
	}
	o, err := h.Order.Orders.Get(c.UserContext(), id, false)
	if err != nil {
		return 0, err
	}
	if !canSeeOrder(currentUser(c), o) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return 0, apperr.NotFound("order %d not found", id)
	}
	return id, nil
}
