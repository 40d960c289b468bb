package services_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"roomservice/internal/config"
	"roomservice/internal/domain"
	"roomservice/internal/repos"
	"roomservice/internal/services"
)

// Seeded fixtures, see repos.seedIfEmpty.
const (
	alice int64 = 1
	bob   int64 = 2
	admin int64 = 3

	room101    int64 = 1
	room102    int64 = 2
	conference int64 = 3

	espresso   int64 = 1 // 2.50
	cappuccino int64 = 2 // 3.75
	icedTea    int64 = 3 // 2.25
	lemonade   int64 = 4 // 2.00, unavailable
	croissant  int64 = 5 // 1.80
)

// openStore opens a seeded SQLite database in a temp file. A file rather than
// :memory: lets concurrent tests use more than one connection.
func openStore(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(config.DB{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "roomservice.db"),
		Seed:   true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	db      *sqlx.DB
	cart    *services.CartService
	orders  *services.OrderService
	catalog *services.CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openStore(t)
	cart := services.NewCartService(db, nil, nil)
	return &fixture{
		db:      db,
		cart:    cart,
		orders:  services.NewOrderService(db, cart, nil),
		catalog: services.NewCatalogService(db, nil, nil),
	}
}

func count(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func (f *fixture) add(t *testing.T, userID, productID int64, qty int) {
	t.Helper()
	_, err := f.cart.AddLine(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

func (f *fixture) checkout(t *testing.T, userID int64) domain.OrderView {
	t.Helper()
	ov, err := f.orders.CreateFromCart(context.Background(), services.Checkout{UserID: userID, RoomID: room101})
	require.NoError(t, err)
	return ov
}

// fakeCache is an in-process cache.Products.
type fakeCache struct {
	mu          sync.Mutex
	items       map[int64]domain.Product
	sets        int
	invalidated []int64
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[int64]domain.Product{}} }

func (c *fakeCache) GetMany(_ context.Context, ids []int64) (map[int64]domain.Product, []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hits := map[int64]domain.Product{}
	var misses []int64
	for _, id := range ids {
		if p, ok := c.items[id]; ok {
			hits[id] = p
		} else {
			misses = append(misses, id)
		}
	}
	return hits, misses
}

func (c *fakeCache) SetMany(_ context.Context, ps []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	for _, p := range ps {
		c.items[p.ID] = p
	}
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.invalidated = append(c.invalidated, ids...)
}
