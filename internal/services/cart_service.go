package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomservice/internal/apperr"
	"roomservice/internal/cache"
	"roomservice/internal/domain"
	"roomservice/internal/repos"
)

type CartService struct {
	DB    *sqlx.DB
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
	Cache cache.Products // optional
	Log   *zap.Logger
}

func NewCartService(db *sqlx.DB, products cache.Products, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		DB:    db,
		Carts: repos.NewCartRepo(db),
		Prods: repos.NewProductRepo(db),
		Cache: products,
		Log:   log,
	}
}

// AddLine puts qty more of the product into the user's cart, creating the
// cart and the line as needed.
func (s *CartService) AddLine(ctx context.Context, userID, productID int64, qty int) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, apperr.Validation("quantity must be greater than zero")
	}
	var line domain.CartLine
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if _, err := s.Prods.Tx(tx).Get(ctx, productID); err != nil {
			return err
		}
		carts := s.Carts.Tx(tx)
		cart, err := carts.Ensure(ctx, userID, time.Now().UTC())
		if err != nil {
			return err
		}
		line, err = carts.UpsertLine(ctx, cart.ID, productID, qty)
		return err
	})
	if err != nil {
		return domain.CartLine{}, err
	}
	s.Log.Debug("cart line added",
		zap.Int64("user_id", userID), zap.Int64("product_id", productID),
		zap.Int("added", qty), zap.Int("quantity", line.Quantity))
	return line, nil
}

func (s *CartService) RemoveLine(ctx context.Context, userID, productID int64) error {
	return repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		carts := s.Carts.Tx(tx)
		line, cart, err := s.findLine(ctx, carts, userID, productID)
		if err != nil {
			return err
		}
		if err := carts.DeleteLine(ctx, line.ID); err != nil {
			return err
		}
		return carts.Touch(ctx, cart.ID, time.Now().UTC())
	})
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, qty int) (domain.CartLine, error) {
	if qty < 1 {
		return domain.CartLine{}, apperr.Validation("quantity must be greater than zero")
	}
	var out domain.CartLine
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		carts := s.Carts.Tx(tx)
		line, cart, err := s.findLine(ctx, carts, userID, productID)
		if err != nil {
			return err
		}
		if out, err = carts.SetQuantity(ctx, line.ID, qty); err != nil {
			return err
		}
		return carts.Touch(ctx, cart.ID, time.Now().UTC())
	})
	return out, err
}

func (s *CartService) findLine(ctx context.Context, carts *repos.CartRepo, userID, productID int64) (domain.CartLine, domain.Cart, error) {
	cart, ok, err := carts.ByUser(ctx, userID, true)
	if err != nil {
		return domain.CartLine{}, cart, err
	}
	if !ok {
		return domain.CartLine{}, cart, apperr.NotFound("user %d has no cart", userID)
	}
	line, ok, err := carts.Line(ctx, cart.ID, productID)
	if err != nil {
		return line, cart, err
	}
	if !ok {
		return line, cart, apperr.NotFound("product %d is not in the cart", productID)
	}
	return line, cart, nil
}

// GetCart returns the user's cart with every line joined to the product as it
// is now. A user without a cart gets an empty view; reading never creates one.
func (s *CartService) GetCart(ctx context.Context, userID int64) (domain.CartView, error) {
	view := domain.CartView{UserID: userID, Lines: []domain.CartLineView{}, Total: decimal.Zero}
	cart, ok, err := s.Carts.ByUser(ctx, userID, false)
	if err != nil || !ok {
		return view, err
	}
	lines, err := s.Carts.Lines(ctx, cart.ID)
	if err != nil {
		return view, err
	}
	view.CartID = cart.ID
	view.UpdatedAt = &cart.UpdatedAt

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.snapshots(ctx, ids)
	if err != nil {
		return view, err
	}

	for _, l := range lines {
		lv := domain.CartLineView{CartLine: l, Subtotal: decimal.Zero}
		if p, ok := products[l.ProductID]; ok {
			lv.Product = &domain.ProductSnapshot{
				Name:         p.Name,
				Price:        p.Price,
				Availability: p.Availability,
				Deleted:      p.DeletedAt != nil,
			}
			if p.DeletedAt == nil {
				lv.Subtotal = p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
				view.Total = view.Total.Add(lv.Subtotal)
			}
		}
		view.Lines = append(view.Lines, lv)
	}
	return view, nil
}

// snapshots loads products for display, soft-deleted ones included, going to
// the cache first when one is configured.
func (s *CartService) snapshots(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if s.Cache == nil {
		return s.Prods.ByIDs(ctx, ids, true)
	}
	hits, misses := s.Cache.GetMany(ctx, ids)
	if len(misses) == 0 {
		return hits, nil
	}
	loaded, err := s.Prods.ByIDs(ctx, misses, true)
	if err != nil {
		return nil, err
	}
	fresh := make([]domain.Product, 0, len(loaded))
	for id, p := range loaded {
		hits[id] = p
		fresh = append(fresh, p)
	}
	s.Cache.SetMany(ctx, fresh)
	return hits, nil
}

// Clear deletes every line of the cart. The cart row itself is kept.
func (s *CartService) Clear(ctx context.Context, cartID int64) error {
	return repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if _, err := repos.Carts.Find(ctx, tx, cartID); err != nil {
			return err
		}
		return s.clearTx(ctx, tx, cartID, time.Now().UTC())
	})
}

func (s *CartService) clearTx(ctx context.Context, tx *sqlx.Tx, cartID int64, now time.Time) error {
	carts := s.Carts.Tx(tx)
	if _, err := carts.Clear(ctx, cartID); err != nil {
		return err
	}
	return carts.Touch(ctx, cartID, now)
}
