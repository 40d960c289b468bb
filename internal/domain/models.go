package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Room struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
)

func (a Availability) Valid() bool { return a == Available || a == Unavailable }

type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Price        decimal.Decimal `db:"price" json:"price"`
	CategoryID   int64           `db:"category_id" json:"category_id"`
	Availability Availability    `db:"availability" json:"availability"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

type Cart struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

type CartLine struct {
	ID        int64 `db:"id" json:"id"`
	CartID    int64 `db:"cart_id" json:"cart_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
}

// ProductSnapshot is the live product state shown next to a cart line. It is
// read at display time and never stored.
type ProductSnapshot struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Availability Availability    `json:"availability"`
	Deleted      bool            `json:"deleted"`
}

type CartLineView struct {
	CartLine
	Product  *ProductSnapshot `json:"product"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

type CartView struct {
	CartID    int64           `json:"cart_id,omitempty"`
	UserID    int64           `json:"user_id"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Lines     []CartLineView  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
}

type Order struct {
	ID         int64           `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"user_id"`
	PlacedBy   int64           `db:"placed_by" json:"placed_by"`
	RoomID     int64           `db:"room_id" json:"room_id"`
	Status     Status          `db:"status" json:"status"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	Notes      *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderLine carries the price copied from the product when the order was
// created; later product price changes never reach it.
type OrderLine struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderLineView struct {
	OrderLine
	ProductName string          `json:"product_name,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderView struct {
	Order
	Lines []OrderLineView `json:"lines"`
}

type OrderSummary struct {
	Order
	UserName  string          `json:"user_name,omitempty"`
	RoomName  string          `json:"room_name,omitempty"`
	Lines     []OrderLineView `json:"lines"`
	LineCount int             `json:"line_count"`
}
