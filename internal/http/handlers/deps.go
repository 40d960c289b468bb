package handlers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"roomservice/internal/cache"
	"roomservice/internal/repos"
	"roomservice/internal/services"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler    *AuthHandler
	CartHandler    *CartHandler
	OrderHandler   *OrderHandler
	ProductHandler *ProductHandler
	AdminHandler   *AdminHandler
}

// NewDeps wires services and handlers over one store handle. products may be
// nil when no cache is configured.
func NewDeps(db *sqlx.DB, products cache.Products, log *zap.Logger) *Deps {
	if log == nil {
		log = zap.NewNop()
	}
	authSvc := services.NewAuthService(repos.NewUserRepo(db))
	cartSvc := services.NewCartService(db, products, log.Named("cart"))
	orderSvc := services.NewOrderService(db, cartSvc, log.Named("order"))
	catalogSvc := services.NewCatalogService(db, products, log.Named("catalog"))

	return &Deps{
		Auth:           authSvc,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		CartHandler:    &CartHandler{Cart: cartSvc},
		OrderHandler:   &OrderHandler{Order: orderSvc},
		ProductHandler: &ProductHandler{Catalog: catalogSvc},
		AdminHandler:   &AdminHandler{Dashboard: services.NewDashboardService(db)},
	}
}
