package services

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomservice/internal/apperr"
	"roomservice/internal/cache"
	"roomservice/internal/domain"
	"roomservice/internal/query"
	"roomservice/internal/repos"
)

type ProductFilter struct {
	Name         string // substring match
	CategoryID   *int64
	Availability *domain.Availability
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	WithDeleted  bool
}

type CatalogService struct {
	Prods *repos.ProductRepo
	Cache cache.Products // optional
	Log   *zap.Logger
}

func NewCatalogService(db *sqlx.DB, products cache.Products, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{Prods: repos.NewProductRepo(db), Cache: products, Log: log}
}

func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter, sorts []query.Sort, page, size int) (query.Page[domain.Product], error) {
	b := s.Prods.Query()
	if f.WithDeleted {
		b = b.WithTrashed()
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		b = b.Filter("name", query.Like, "%"+name+"%")
	}
	if f.CategoryID != nil {
		b = b.Filter("category_id", query.Eq, *f.CategoryID)
	}
	if f.Availability != nil {
		if !f.Availability.Valid() {
			return query.Page[domain.Product]{}, apperr.Validation("unknown availability %q", *f.Availability)
		}
		b = b.Filter("availability", query.Eq, string(*f.Availability))
	}
	switch {
	case f.MinPrice != nil && f.MaxPrice != nil:
		b = b.Filter("price", query.Between, query.Range{From: *f.MinPrice, To: *f.MaxPrice})
	case f.MinPrice != nil:
		b = b.Filter("price", query.Ge, *f.MinPrice)
	case f.MaxPrice != nil:
		b = b.Filter("price", query.Le, *f.MaxPrice)
	}
	if len(sorts) == 0 {
		sorts = []query.Sort{{Field: "name", Dir: query.Asc}}
	}
	return b.SortBy(sorts...).Paginate(ctx, page, size)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.Prods.Get(ctx, id)
}

// UpdatePrice changes the list price. Orders already placed keep their
// snapshot price.
func (s *CatalogService) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (domain.Product, error) {
	if !price.IsPositive() {
		return domain.Product{}, apperr.Validation("price must be greater than zero")
	}
	if _, err := s.Prods.Get(ctx, id); err != nil {
		return domain.Product{}, err
	}
	return s.write(ctx, id, query.Fields{"price": price.Round(2)})
}

func (s *CatalogService) SetAvailability(ctx context.Context, id int64, a domain.Availability) (domain.Product, error) {
	if !a.Valid() {
		return domain.Product{}, apperr.Validation("unknown availability %q", a)
	}
	if _, err := s.Prods.Get(ctx, id); err != nil {
		return domain.Product{}, err
	}
	return s.write(ctx, id, query.Fields{"availability": string(a)})
}

// SoftDelete hides the product from listings and checkout. Carts keep their
// lines; they are skipped when an order is created.
func (s *CatalogService) SoftDelete(ctx context.Context, id int64) error {
	if _, err := s.Prods.Get(ctx, id); err != nil {
		return err
	}
	_, err := s.write(ctx, id, query.Fields{"deleted_at": time.Now().UTC()})
	return err
}

func (s *CatalogService) Restore(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.Prods.GetTrashed(ctx, id)
	if err != nil {
		return p, err
	}
	if p.DeletedAt == nil {
		return p, apperr.Conflict("product %d is not deleted", id)
	}
	return s.write(ctx, id, query.Fields{"deleted_at": nil})
}

func (s *CatalogService) write(ctx context.Context, id int64, fields query.Fields) (domain.Product, error) {
	p, err := s.Prods.Update(ctx, id, fields)
	if err != nil {
		return p, err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}
	s.Log.Info("product updated", zap.Int64("product_id", id), zap.Strings("fields", fieldNames(fields)))
	return p, nil
}

func fieldNames(f query.Fields) []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	return out
}
