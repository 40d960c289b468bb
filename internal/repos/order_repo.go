package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/domain"
	"roomservice/internal/query"
)

type OrderRepo struct{ q sqlx.ExtContext }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{q: db} }

func (r *OrderRepo) Tx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{q: tx} }

func (r *OrderRepo) Query() query.Builder[domain.Order] { return Orders.Query(r.q) }

// Create inserts a new order header in the processing state.
func (r *OrderRepo) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	return Orders.Create(ctx, r.q, query.Fields{
		"user_id":     o.UserID,
		"placed_by":   o.PlacedBy,
		"room_id":     o.RoomID,
		"status":      string(domain.StatusProcessing),
		"total_price": o.TotalPrice,
		"notes":       o.Notes,
		"created_at":  o.CreatedAt,
		"updated_at":  o.CreatedAt,
	})
}

// InsertLine inserts a single line item with its price snapshot.
func (r *OrderRepo) InsertLine(ctx context.Context, l domain.OrderLine) (domain.OrderLine, error) {
	return OrderLines.Create(ctx, r.q, query.Fields{
		"order_id":   l.OrderID,
		"product_id": l.ProductID,
		"quantity":   l.Quantity,
		"price":      l.Price,
	})
}

func (r *OrderRepo) Get(ctx context.Context, id int64, lock bool) (domain.Order, error) {
	b := r.Query().Filter("id", query.Eq, id)
	if lock {
		b = b.Lock()
	}
	o, ok, err := b.First(ctx)
	if err != nil {
		return o, err
	}
	if !ok {
		return o, notFound("orders", id)
	}
	return o, nil
}

func (r *OrderRepo) Lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	return OrderLines.Query(r.q).
		Filter("order_id", query.Eq, orderID).
		Sort("id", query.Asc).
		All(ctx)
}

// SetStatus moves the order from one status to another only if it is still in
// from. It reports false when another writer got there first.
func (r *OrderRepo) SetStatus(ctx context.Context, id int64, from, to domain.Status, now time.Time) (bool, error) {
	n, err := r.Query().
		Filter("id", query.Eq, id).
		Filter("status", query.Eq, string(from)).
		Update(ctx, query.Fields{"status": string(to), "updated_at": now})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *OrderRepo) Update(ctx context.Context, id int64, fields query.Fields) (domain.Order, error) {
	return Orders.Update(ctx, r.q, id, fields)
}

// LinesFor loads the lines of every listed order in one query, grouped by
// order id and sorted by line id.
func (r *OrderRepo) LinesFor(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	out := make(map[int64][]domain.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	lines, err := OrderLines.Query(r.q).
		Filter("order_id", query.In, orderIDs).
		Sort("id", query.Asc).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, nil
}

// CountByStatus returns how many orders sit in each status; statuses with no
// orders are reported as zero.
func (r *OrderRepo) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	out := make(map[domain.Status]int64, len(domain.Transitions))
	for s := range domain.Transitions {
		out[s] = 0
	}
	var rows []struct {
		Status string `db:"status"`
		N      int64  `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT status, COUNT(*) AS n FROM orders GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	for _, row := range rows {
		out[domain.Status(row.Status)] = row.N
	}
	return out, nil
}
