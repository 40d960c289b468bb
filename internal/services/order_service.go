package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomservice/internal/apperr"
	"roomservice/internal/domain"
	"roomservice/internal/query"
	"roomservice/internal/repos"
)

// Checkout asks for the order of a cart. The cart consumed belongs to ActorID,
// which defaults to UserID; when they differ a staff member is checking out on
// the user's behalf and the order records who placed it.
type Checkout struct {
	UserID  int64
	RoomID  int64
	Notes   *string
	ActorID int64
}

// OrderPatch holds the details that may change while an order is processing.
// Nil fields are left alone.
type OrderPatch struct {
	Notes  *string
	RoomID *int64
}

type OrderFilter struct {
	UserID *int64
	Status *domain.Status
	From   *time.Time // created_at lower bound, inclusive
	To     *time.Time // created_at upper bound, inclusive
}

type OrderService struct {
	DB      *sqlx.DB
	Cart    *CartService
	Orders  *repos.OrderRepo
	Prods   *repos.ProductRepo
	Lookups *repos.LookupRepo
	Log     *zap.Logger
}

func NewOrderService(db *sqlx.DB, cart *CartService, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		DB:      db,
		Cart:    cart,
		Orders:  repos.NewOrderRepo(db),
		Prods:   repos.NewProductRepo(db),
		Lookups: repos.NewLookupRepo(db),
		Log:     log,
	}
}

// CreateFromCart turns the actor's cart into an order for the user. Lines whose
// product has been deleted are skipped. The order, its lines and the emptied
// cart commit together or not at all.
func (s *OrderService) CreateFromCart(ctx context.Context, in Checkout) (domain.OrderView, error) {
	if in.ActorID == 0 {
		in.ActorID = in.UserID
	}
	var out domain.OrderView
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		lookups := s.Lookups.Tx(tx)
		if err := lookups.UserExists(ctx, in.UserID); err != nil {
			return err
		}
		if err := lookups.RoomExists(ctx, in.RoomID); err != nil {
			return err
		}

		carts := s.Cart.Carts.Tx(tx)
		cart, ok, err := carts.ByUser(ctx, in.ActorID, true)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.EmptyCart("user %d has no cart", in.ActorID)
		}
		lines, err := carts.Lines(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.EmptyCart("cart %d is empty", cart.ID)
		}

		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}
		products, err := s.Prods.Tx(tx).ByIDs(ctx, ids, false)
		if err != nil {
			return err
		}

		total := decimal.Zero
		var resolved []domain.OrderLine
		for _, l := range lines {
			p, ok := products[l.ProductID]
			if !ok {
				s.Log.Info("skipping cart line for missing product",
					zap.Int64("cart_id", cart.ID), zap.Int64("product_id", l.ProductID))
				continue
			}
			ol := domain.OrderLine{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price}
			total = total.Add(ol.Subtotal())
			resolved = append(resolved, ol)
		}
		if len(resolved) == 0 {
			return apperr.EmptyCart("no product in cart %d is still available", cart.ID)
		}

		now := time.Now().UTC()
		orders := s.Orders.Tx(tx)
		order, err := orders.Create(ctx, domain.Order{
			UserID:     in.UserID,
			PlacedBy:   in.ActorID,
			RoomID:     in.RoomID,
			TotalPrice: total,
			Notes:      in.Notes,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		out = domain.OrderView{Order: order, Lines: make([]domain.OrderLineView, 0, len(resolved))}
		for _, ol := range resolved {
			ol.OrderID = order.ID
			saved, err := orders.InsertLine(ctx, ol)
			if err != nil {
				return err
			}
			out.Lines = append(out.Lines, domain.OrderLineView{
				OrderLine:   saved,
				ProductName: products[saved.ProductID].Name,
				Subtotal:    saved.Subtotal(),
			})
		}
		return s.Cart.clearTx(ctx, tx, cart.ID, now)
	})
	if err != nil {
		return domain.OrderView{}, err
	}
	s.Log.Info("order created",
		zap.Int64("order_id", out.ID), zap.Int64("user_id", out.UserID),
		zap.Int64("placed_by", out.PlacedBy), zap.String("total", out.TotalPrice.StringFixed(2)),
		zap.Int("lines", len(out.Lines)))
	return out, nil
}

// Transition moves the order to the requested status if the lifecycle allows
// it. The status is rewritten only if nobody changed it since it was read.
func (s *OrderService) Transition(ctx context.Context, orderID int64, to domain.Status) (domain.Order, error) {
	var out domain.Order
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		orders := s.Orders.Tx(tx)
		cur, err := orders.Get(ctx, orderID, true)
		if err != nil {
			return err
		}
		if err := domain.CheckTransition(cur.Status, to); err != nil {
			return err
		}
		ok, err := orders.SetStatus(ctx, orderID, cur.Status, to, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("order %d changed status concurrently", orderID)
		}
		out, err = orders.Get(ctx, orderID, false)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.Log.Info("order status changed", zap.Int64("order_id", orderID), zap.String("status", string(out.Status)))
	return out, nil
}

func (s *OrderService) Cancel(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.Transition(ctx, orderID, domain.StatusCanceled)
}

// UpdateDetails changes notes or the delivery room of an order that has not
// left the kitchen yet.
func (s *OrderService) UpdateDetails(ctx context.Context, orderID int64, p OrderPatch) (domain.Order, error) {
	fields := query.Fields{}
	if p.Notes != nil {
		notes := strings.TrimSpace(*p.Notes)
		if notes == "" {
			fields["notes"] = nil
		} else {
			fields["notes"] = notes
		}
	}
	if p.RoomID != nil {
		fields["room_id"] = *p.RoomID
	}
	if len(fields) == 0 {
		return domain.Order{}, apperr.Validation("nothing to update")
	}

	var out domain.Order
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		orders := s.Orders.Tx(tx)
		cur, err := orders.Get(ctx, orderID, true)
		if err != nil {
			return err
		}
		if cur.Status != domain.StatusProcessing {
			return apperr.Conflict("order %d is %s and can no longer be edited", orderID, cur.Status)
		}
		if p.RoomID != nil {
			if err := s.Lookups.Tx(tx).RoomExists(ctx, *p.RoomID); err != nil {
				return err
			}
		}
		fields["updated_at"] = time.Now().UTC()
		out, err = orders.Update(ctx, orderID, fields)
		return err
	})
	return out, err
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (domain.OrderView, error) {
	o, err := s.Orders.Get(ctx, orderID, false)
	if err != nil {
		return domain.OrderView{}, err
	}
	lines, err := s.Orders.Lines(ctx, orderID)
	if err != nil {
		return domain.OrderView{}, err
	}
	views, err := s.lineViews(ctx, lines)
	if err != nil {
		return domain.OrderView{}, err
	}
	return domain.OrderView{Order: o, Lines: views}, nil
}

// lineViews attaches product names to order lines. Deleted products still
// resolve so old orders keep their names.
func (s *OrderService) lineViews(ctx context.Context, lines []domain.OrderLine) ([]domain.OrderLineView, error) {
	var ids []int64
	for _, l := range lines {
		if !slices.Contains(ids, l.ProductID) {
			ids = append(ids, l.ProductID)
		}
	}
	products, err := s.Prods.ByIDs(ctx, ids, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderLineView, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLineView{
			OrderLine:   l,
			ProductName: products[l.ProductID].Name,
			Subtotal:    l.Subtotal(),
		}
	}
	return out, nil
}

// ListOrders pages through orders matching f. Without sorts the newest orders
// come first.
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter, sorts []query.Sort, page, size int) (query.Page[domain.OrderSummary], error) {
	b := s.Orders.Query()
	if f.UserID != nil {
		b = b.Filter("user_id", query.Eq, *f.UserID)
	}
	if f.Status != nil {
		if _, err := domain.ParseStatus(string(*f.Status)); err != nil {
			return query.Page[domain.OrderSummary]{}, err
		}
		b = b.Filter("status", query.Eq, string(*f.Status))
	}
	switch {
	case f.From != nil && f.To != nil:
		b = b.Filter("created_at", query.Between, query.Range{From: f.From.UTC(), To: f.To.UTC()})
	case f.From != nil:
		b = b.Filter("created_at", query.Ge, f.From.UTC())
	case f.To != nil:
		b = b.Filter("created_at", query.Le, f.To.UTC())
	}
	if len(sorts) == 0 {
		sorts = []query.Sort{{Field: "created_at", Dir: query.Desc}, {Field: "id", Dir: query.Desc}}
	}
	res, err := b.SortBy(sorts...).Paginate(ctx, page, size)
	if err != nil {
		return query.Page[domain.OrderSummary]{}, err
	}

	var userIDs, roomIDs, orderIDs []int64
	for _, o := range res.Items {
		orderIDs = append(orderIDs, o.ID)
		if !slices.Contains(userIDs, o.UserID) {
			userIDs = append(userIDs, o.UserID)
		}
		if !slices.Contains(roomIDs, o.RoomID) {
			roomIDs = append(roomIDs, o.RoomID)
		}
	}
	users, err := s.Lookups.UserNames(ctx, userIDs)
	if err != nil {
		return query.Page[domain.OrderSummary]{}, err
	}
	rooms, err := s.Lookups.RoomNames(ctx, roomIDs)
	if err != nil {
		return query.Page[domain.OrderSummary]{}, err
	}
	lines, err := s.Orders.LinesFor(ctx, orderIDs)
	if err != nil {
		return query.Page[domain.OrderSummary]{}, err
	}
	var all []domain.OrderLine
	for _, id := range orderIDs {
		all = append(all, lines[id]...)
	}
	views, err := s.lineViews(ctx, all)
	if err != nil {
		return query.Page[domain.OrderSummary]{}, err
	}
	byOrder := make(map[int64][]domain.OrderLineView, len(orderIDs))
	for _, v := range views {
		byOrder[v.OrderID] = append(byOrder[v.OrderID], v)
	}

	return query.MapPage(res, func(o domain.Order) domain.OrderSummary {
		return domain.OrderSummary{
			Order:     o,
			UserName:  users[o.UserID],
			RoomName:  rooms[o.RoomID],
			Lines:     byOrder[o.ID],
			LineCount: len(byOrder[o.ID]),
		}
	}), nil
}
