package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/apperr"
	"roomservice/internal/domain"
	"roomservice/internal/query"
)

// CartRepo reads and writes carts and their lines. Tx rebinds it onto a
// transaction so several calls commit or roll back together.
type CartRepo struct{ q sqlx.ExtContext }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{q: db} }

func (r *CartRepo) Tx(tx *sqlx.Tx) *CartRepo { return &CartRepo{q: tx} }

// ByUser returns the user's live cart. lock takes a row lock on dialects that
// have them.
func (r *CartRepo) ByUser(ctx context.Context, userID int64, lock bool) (domain.Cart, bool, error) {
	b := Carts.Query(r.q).Filter("user_id", query.Eq, userID)
	if lock {
		b = b.Lock()
	}
	return b.First(ctx)
}

// Ensure returns the user's live cart, creating it when absent, and bumps its
// updated_at. Concurrent callers converge on the same row through the partial
// unique index on (user_id) WHERE deleted_at IS NULL.
func (r *CartRepo) Ensure(ctx context.Context, userID int64, now time.Time) (domain.Cart, error) {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO carts(user_id, updated_at) VALUES (?, ?)
		ON CONFLICT(user_id) WHERE deleted_at IS NULL
		DO UPDATE SET updated_at = excluded.updated_at
	`), userID, now)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("ensure cart for user %d: %w", userID, err)
	}
	c, ok, err := r.ByUser(ctx, userID, false)
	if err != nil {
		return domain.Cart{}, err
	}
	if !ok {
		return domain.Cart{}, fmt.Errorf("cart for user %d vanished after upsert", userID)
	}
	return c, nil
}

func (r *CartRepo) Touch(ctx context.Context, cartID int64, now time.Time) error {
	_, err := Carts.Update(ctx, r.q, cartID, query.Fields{"updated_at": now})
	return err
}

// UpsertLine adds qty to the (cart, product) line in one statement, creating
// the line when it does not exist yet.
func (r *CartRepo) UpsertLine(ctx context.Context, cartID, productID int64, qty int) (domain.CartLine, error) {
	var l domain.CartLine
	err := sqlx.GetContext(ctx, r.q, &l, r.q.Rebind(`
		INSERT INTO cart_lines(cart_id, product_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT(cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + excluded.quantity
		RETURNING id, cart_id, product_id, quantity
	`), cartID, productID, qty)
	if err != nil {
		return l, fmt.Errorf("upsert cart line: %w", err)
	}
	return l, nil
}

func (r *CartRepo) Line(ctx context.Context, cartID, productID int64) (domain.CartLine, bool, error) {
	return CartLines.Query(r.q).
		Filter("cart_id", query.Eq, cartID).
		Filter("product_id", query.Eq, productID).
		First(ctx)
}

func (r *CartRepo) Lines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	return CartLines.Query(r.q).
		Filter("cart_id", query.Eq, cartID).
		Sort("id", query.Asc).
		All(ctx)
}

func (r *CartRepo) SetQuantity(ctx context.Context, lineID int64, qty int) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, apperr.Validation("quantity must be greater than zero")
	}
	return CartLines.Update(ctx, r.q, lineID, query.Fields{"quantity": qty})
}

func (r *CartRepo) DeleteLine(ctx context.Context, lineID int64) error {
	return CartLines.Delete(ctx, r.q, lineID)
}

// Clear deletes every line of the cart and keeps the cart row.
func (r *CartRepo) Clear(ctx context.Context, cartID int64) (int64, error) {
	return CartLines.Query(r.q).Filter("cart_id", query.Eq, cartID).Delete(ctx)
}
