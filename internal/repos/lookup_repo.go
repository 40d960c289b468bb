package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/apperr"
	"roomservice/internal/query"
)

// LookupRepo answers the plain by-id questions other services own: does a
// room or user exist, and what are they called.
type LookupRepo struct{ q sqlx.ExtContext }

func NewLookupRepo(db *sqlx.DB) *LookupRepo { return &LookupRepo{q: db} }

func (r *LookupRepo) Tx(tx *sqlx.Tx) *LookupRepo { return &LookupRepo{q: tx} }

func (r *LookupRepo) RoomExists(ctx context.Context, id int64) error {
	_, err := Rooms.Find(ctx, r.q, id)
	return err
}

func (r *LookupRepo) UserExists(ctx context.Context, id int64) error {
	_, err := Users.Find(ctx, r.q, id)
	return err
}

func (r *LookupRepo) RoomNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}
	rooms, err := Rooms.Query(r.q).Filter("id", query.In, ids).All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rm := range rooms {
		out[rm.ID] = rm.Name
	}
	return out, nil
}

func (r *LookupRepo) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}
	users, err := Users.Query(r.q).WithTrashed().Filter("id", query.In, ids).All(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Name
	}
	return out, nil
}

func notFound(table string, id int64) error {
	return apperr.NotFound("%s %d not found", table, id)
}
