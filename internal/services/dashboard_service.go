package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"roomservice/internal/domain"
	"roomservice/internal/repos"
)

type Stats struct {
	Users          int64                   `json:"users"`
	Rooms          int64                   `json:"rooms"`
	Categories     int64                   `json:"categories"`
	Products       int64                   `json:"products"`
	Orders         int64                   `json:"orders"`
	OrdersByStatus map[domain.Status]int64 `json:"orders_by_status"`
}

// DashboardService feeds the admin overview.
type DashboardService struct {
	DB     *sqlx.DB
	Orders *repos.OrderRepo
}

func NewDashboardService(db *sqlx.DB) *DashboardService {
	return &DashboardService{DB: db, Orders: repos.NewOrderRepo(db)}
}

func (s *DashboardService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Users, err = repos.Users.Query(s.DB).Count(ctx); err != nil {
		return st, err
	}
	if st.Rooms, err = repos.Rooms.Query(s.DB).Count(ctx); err != nil {
		return st, err
	}
	if st.Categories, err = repos.Categories.Query(s.DB).Count(ctx); err != nil {
		return st, err
	}
	if st.Products, err = repos.Products.Query(s.DB).Count(ctx); err != nil {
		return st, err
	}
	if st.Orders, err = repos.Orders.Query(s.DB).Count(ctx); err != nil {
		return st, err
	}
	if st.OrdersByStatus, err = s.Orders.CountByStatus(ctx); err != nil {
		return st, err
	}
	return st, nil
}
