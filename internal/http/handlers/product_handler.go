package handlers

import (
	"github.com/gofiber/fiber/v2"

	"roomservice/internal/apperr"
	"roomservice/internal/domain"
	applog "roomservice/internal/log"
	"roomservice/internal/services"
	"roomservice/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page, size, err := validate.Page(c.Query("page"), c.Query("size"))
	if err != nil {
		return err
	}
	sorts, err := validate.Sorts(c.Query("sort"))
	if err != nil {
		return err
	}

	var f services.ProductFilter
	if q := c.Query("q"); q != "" {
		name, ok := validate.Q(q)
		if !ok {
			return apperr.Validation("bad search term")
		}
		f.Name = name
	}
	if s := c.Query("category_id"); s != "" {
		id, ok := validate.ID(s)
		if !ok {
			return apperr.Validation("bad category_id")
		}
		f.CategoryID = &id
	}
	if s := c.Query("availability"); s != "" {
		a := domain.Availability(s)
		f.Availability = &a
	}
	if s := c.Query("min_price"); s != "" {
		p, err := validate.Price(s)
		if err != nil {
			return err
		}
		f.MinPrice = &p
	}
	if s := c.Query("max_price"); s != "" {
		p, err := validate.Price(s)
		if err != nil {
			return err
		}
		f.MaxPrice = &p
	}
	f.WithDeleted = c.QueryBool("deleted") && currentUser(c).IsAdmin()

	res, err := h.Catalog.ListProducts(c.UserContext(), f, sorts, page, size)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apperr.NotFound("product not found")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

type patchProductReq struct {
	Price        *string              `json:"price"`
	Availability *domain.Availability `json:"availability"`
}

// PATCH /api/v1/products/:id (admin)
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apperr.NotFound("product not found")
	}
	var req patchProductReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("malformed body")
	}
	if req.Price == nil && req.Availability == nil {
		return apperr.Validation("nothing to update")
	}

	var p domain.Product
	if req.Price != nil {
		price, err := validate.Price(*req.Price)
		if err != nil {
			return err
		}
		if p, err = h.Catalog.UpdatePrice(c.UserContext(), id, price); err != nil {
			return err
		}
	}
	if req.Availability != nil {
		var err error
		if p, err = h.Catalog.SetAvailability(c.UserContext(), id, *req.Availability); err != nil {
			return err
		}
	}
	applog.Audit(c, "product.update", map[string]any{"product_id": id})
	return c.JSON(p)
}

// DELETE /api/v1/products/:id (admin)
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apperr.NotFound("product not found")
	}
	if err := h.Catalog.SoftDelete(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "product.delete", map[string]any{"product_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/products/:id/restore (admin)
func (h *ProductHandler) Restore(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apperr.NotFound("product not found")
	}
	p, err := h.Catalog.Restore(c.UserContext(), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "product.restore", map[string]any{"product_id": id})
	return c.JSON(p)
}
