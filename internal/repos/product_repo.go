package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/domain"
	"roomservice/internal/query"
)

type ProductRepo struct{ q sqlx.ExtContext }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{q: db} }

func (r *ProductRepo) Tx(tx *sqlx.Tx) *ProductRepo { return &ProductRepo{q: tx} }

func (r *ProductRepo) Query() query.Builder[domain.Product] { return Products.Query(r.q) }

// Get returns a live (not soft-deleted) product.
func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	return Products.Find(ctx, r.q, id)
}

// GetTrashed returns a product whether or not it is soft-deleted.
func (r *ProductRepo) GetTrashed(ctx context.Context, id int64) (domain.Product, error) {
	p, ok, err := r.Query().WithTrashed().Filter("id", query.Eq, id).First(ctx)
	if err != nil {
		return p, err
	}
	if !ok {
		return p, notFound("products", id)
	}
	return p, nil
}

// ByIDs loads the given products keyed by id; ids without a row are absent
// from the map.
func (r *ProductRepo) ByIDs(ctx context.Context, ids []int64, withTrashed bool) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	b := r.Query().Filter("id", query.In, ids)
	if withTrashed {
		b = b.WithTrashed()
	}
	rows, err := b.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepo) Update(ctx context.Context, id int64, fields query.Fields) (domain.Product, error) {
	return Products.Update(ctx, r.q, id, fields)
}
