package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"roomservice/internal/apperr"
	"roomservice/internal/domain"
	"roomservice/internal/query"
	"roomservice/internal/services"
)

func TestCreateFromCart_SnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 2)
	f.add(t, alice, cappuccino, 1)
	notes := "no sugar"

	ov, err := f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: room102, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, ov.Status)
	assert.Equal(t, alice, ov.UserID)
	assert.Equal(t, alice, ov.PlacedBy)
	assert.Equal(t, room102, ov.RoomID)
	require.NotNil(t, ov.Notes)
	assert.Equal(t, "no sugar", *ov.Notes)
	assert.Equal(t, "8.75", ov.TotalPrice.StringFixed(2))
	require.Len(t, ov.Lines, 2)

	cv, err := f.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, cv.Lines, "cart is cleared")
	assert.NotZero(t, cv.CartID, "cart row survives")

	_, err = f.catalog.UpdatePrice(ctx, espresso, decimal.RequireFromString("9.99"))
	require.NoError(t, err)

	got, err := f.orders.GetOrder(ctx, ov.ID)
	require.NoError(t, err)
	assert.Equal(t, "8.75", got.TotalPrice.StringFixed(2))
	sum := decimal.Zero
	for _, l := range got.Lines {
		sum = sum.Add(l.Subtotal)
	}
	assert.True(t, sum.Equal(got.TotalPrice), "total %s != sum of lines %s", got.TotalPrice, sum)
	assert.Equal(t, "Espresso", got.Lines[0].ProductName)
	assert.Equal(t, "2.50", got.Lines[0].Price.StringFixed(2))
}

func TestCreateFromCart_EmptyOrAbsentCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: room101})
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)

	f.add(t, alice, espresso, 1)
	require.NoError(t, f.cart.RemoveLine(ctx, alice, espresso))

	_, err = f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: room101})
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)

	assert.Equal(t, 0, count(t, f.db, "orders"))
	assert.Equal(t, 0, count(t, f.db, "order_lines"))
}

func TestCreateFromCart_UnknownUserOrRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)

	_, err := f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: 77})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.orders.CreateFromCart(ctx, services.Checkout{UserID: 77, RoomID: room101, ActorID: alice})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cv, err := f.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, cv.Lines, 1)
}

func TestCreateFromCart_SkipsDeletedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)
	f.add(t, alice, croissant, 3)
	require.NoError(t, f.catalog.SoftDelete(ctx, croissant))

	ov := f.checkout(t, alice)
	require.Len(t, ov.Lines, 1)
	assert.Equal(t, espresso, ov.Lines[0].ProductID)
	assert.Equal(t, "2.50", ov.TotalPrice.StringFixed(2))
	assert.Equal(t, 0, count(t, f.db, "cart_lines"))
}

func TestCreateFromCart_NothingResolvesLeavesCartAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, croissant, 1)
	require.NoError(t, f.catalog.SoftDelete(ctx, croissant))

	_, err := f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: room101})
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	assert.Equal(t, 0, count(t, f.db, "orders"))
	assert.Equal(t, 1, count(t, f.db, "cart_lines"))
}

func TestCreateFromCart_FailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)
	f.add(t, alice, icedTea, 2)

	_, err := f.db.Exec(`CREATE TRIGGER fail_second_line BEFORE INSERT ON order_lines
		WHEN (SELECT COUNT(*) FROM order_lines WHERE order_id = NEW.order_id) >= 1
		BEGIN SELECT RAISE(ABORT, 'order_lines unavailable'); END`)
	require.NoError(t, err)

	_, err = f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: room101})
	require.Error(t, err)

	assert.Equal(t, 0, count(t, f.db, "orders"))
	assert.Equal(t, 0, count(t, f.db, "order_lines"))
	cv, err := f.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, cv.Lines, 2, "cart untouched")
}

func TestCreateFromCart_ConcurrentCheckoutOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)
	f.add(t, alice, cappuccino, 1)

	const n = 4
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, errs[i] = f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: room101})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, count(t, f.db, "orders"))
	assert.Equal(t, 2, count(t, f.db, "order_lines"))
}

func TestCreateFromCart_OnBehalfOfAnotherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, admin, icedTea, 2)
	f.add(t, alice, espresso, 1)

	ov, err := f.orders.CreateFromCart(ctx, services.Checkout{UserID: alice, RoomID: conference, ActorID: admin})
	require.NoError(t, err)
	assert.Equal(t, alice, ov.UserID)
	assert.Equal(t, admin, ov.PlacedBy)
	assert.Equal(t, "4.50", ov.TotalPrice.StringFixed(2))

	staffCart, err := f.cart.GetCart(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, staffCart.Lines)

	ownCart, err := f.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, ownCart.Lines, 1)
}

func TestTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)
	ov := f.checkout(t, alice)

	o, err := f.orders.Transition(ctx, ov.ID, domain.StatusOutForDelivery)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutForDelivery, o.Status)

	_, err = f.orders.Transition(ctx, ov.ID, domain.StatusProcessing)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.orders.Transition(ctx, ov.ID, domain.StatusOutForDelivery)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "already")

	o, err = f.orders.Transition(ctx, ov.ID, domain.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, o.Status)

	for _, to := range []domain.Status{domain.StatusProcessing, domain.StatusOutForDelivery, domain.StatusCanceled} {
		_, err = f.orders.Transition(ctx, ov.ID, to)
		assert.ErrorIs(t, err, apperr.ErrConflict, "done -> %s", to)
	}

	_, err = f.orders.Transition(ctx, ov.ID, "delivered")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.orders.Transition(ctx, 999, domain.StatusDone)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, alice, espresso, 1)
	first := f.checkout(t, alice)
	o, err := f.orders.Cancel(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, o.Status)

	_, err = f.orders.Cancel(ctx, first.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	f.add(t, alice, espresso, 1)
	second := f.checkout(t, alice)
	_, err = f.orders.Transition(ctx, second.ID, domain.StatusOutForDelivery)
	require.NoError(t, err)

	_, err = f.orders.Cancel(ctx, second.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	got, err := f.orders.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutForDelivery, got.Status, "status unchanged")
}

func TestTransition_ConcurrentRequestsSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)
	ov := f.checkout(t, alice)

	targets := []domain.Status{domain.StatusOutForDelivery, domain.StatusCanceled}
	errs := make([]error, len(targets))
	var g errgroup.Group
	for i, to := range targets {
		g.Go(func() error {
			_, errs[i] = f.orders.Transition(ctx, ov.ID, to)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, apperr.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, espresso, 1)
	ov := f.checkout(t, alice)

	notes := "  leave at the door "
	room := conference
	o, err := f.orders.UpdateDetails(ctx, ov.ID, services.OrderPatch{Notes: &notes, RoomID: &room})
	require.NoError(t, err)
	require.NotNil(t, o.Notes)
	assert.Equal(t, "leave at the door", *o.Notes)
	assert.Equal(t, conference, o.RoomID)

	missing := int64(404)
	_, err = f.orders.UpdateDetails(ctx, ov.ID, services.OrderPatch{RoomID: &missing})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orders.UpdateDetails(ctx, ov.ID, services.OrderPatch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.orders.Transition(ctx, ov.ID, domain.StatusOutForDelivery)
	require.NoError(t, err)
	_, err = f.orders.UpdateDetails(ctx, ov.ID, services.OrderPatch{Notes: &notes})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.add(t, alice, espresso, 1)
		f.add(t, alice, croissant, 1)
		f.checkout(t, alice)
	}
	f.add(t, bob, icedTea, 1)
	bobOrder, err := f.orders.CreateFromCart(ctx, services.Checkout{UserID: bob, RoomID: room102})
	require.NoError(t, err)
	_, err = f.orders.Cancel(ctx, bobOrder.ID)
	require.NoError(t, err)

	all, err := f.orders.ListOrders(ctx, services.OrderFilter{}, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, bobOrder.ID, all.Items[0].ID, "newest first by default")
	assert.Equal(t, "Bob", all.Items[0].UserName)
	assert.Equal(t, "Room 102", all.Items[0].RoomName)
	assert.Equal(t, 1, all.Items[0].LineCount)
	require.Len(t, all.Items[0].Lines, 1)
	assert.Equal(t, "Iced Tea", all.Items[0].Lines[0].ProductName)
	assert.Equal(t, "2.25", all.Items[0].Lines[0].Price.StringFixed(2))

	uid := alice
	mine, err := f.orders.ListOrders(ctx, services.OrderFilter{UserID: &uid}, []query.Sort{{Field: "id", Dir: query.Asc}}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	assert.Equal(t, 2, mine.TotalPages)
	require.Len(t, mine.Items, 2)
	assert.Less(t, mine.Items[0].ID, mine.Items[1].ID)
	assert.Equal(t, "Alice", mine.Items[0].UserName)
	assert.Equal(t, "Room 101", mine.Items[0].RoomName)
	assert.Equal(t, 2, mine.Items[0].LineCount)
	for _, it := range mine.Items {
		require.Len(t, it.Lines, 2)
		for _, l := range it.Lines {
			assert.Equal(t, it.ID, l.OrderID, "lines are grouped under their own order")
		}
		assert.Equal(t, "Espresso", it.Lines[0].ProductName)
		assert.Equal(t, "2.50", it.Lines[0].Price.StringFixed(2))
		assert.Equal(t, "Croissant", it.Lines[1].ProductName)
		assert.Equal(t, "1.80", it.Lines[1].Price.StringFixed(2))
	}

	_, err = f.catalog.UpdatePrice(ctx, espresso, decimal.RequireFromString("9.99"))
	require.NoError(t, err)
	mine, err = f.orders.ListOrders(ctx, services.OrderFilter{UserID: &uid}, []query.Sort{{Field: "id", Dir: query.Asc}}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "2.50", mine.Items[0].Lines[0].Price.StringFixed(2), "listed lines keep the checkout price")

	canceled := domain.StatusCanceled
	res, err := f.orders.ListOrders(ctx, services.OrderFilter{Status: &canceled}, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, bobOrder.ID, res.Items[0].ID)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	res, err = f.orders.ListOrders(ctx, services.OrderFilter{From: &from, To: &to}, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Total)

	future := time.Now().Add(24 * time.Hour)
	res, err = f.orders.ListOrders(ctx, services.OrderFilter{From: &future}, nil, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Items)

	_, err = f.orders.ListOrders(ctx, services.OrderFilter{}, []query.Sort{{Field: "password_hash", Dir: query.Asc}}, 1, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidField)
	_, err = f.orders.ListOrders(ctx, services.OrderFilter{}, nil, 0, 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
