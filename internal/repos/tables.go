package repos

import (
	"roomservice/internal/domain"
	"roomservice/internal/query"
)

var (
	Rooms      = query.NewTable[domain.Room]("rooms", "id", "name")
	Categories = query.NewTable[domain.Category]("categories", "id", "name")

	Users = query.NewTable[domain.User]("users",
		"id", "email", "name", "password_hash", "role", "room_id", "deleted_at",
	).WithSoftDelete("deleted_at").WithSelectOnly("password_hash")

	Products = query.NewTable[domain.Product]("products",
		"id", "name", "price", "category_id", "availability", "deleted_at",
	).WithSoftDelete("deleted_at")

	Carts = query.NewTable[domain.Cart]("carts",
		"id", "user_id", "updated_at", "deleted_at",
	).WithSoftDelete("deleted_at")

	CartLines = query.NewTable[domain.CartLine]("cart_lines",
		"id", "cart_id", "product_id", "quantity",
	)

	Orders = query.NewTable[domain.Order]("orders",
		"id", "user_id", "placed_by", "room_id", "status", "total_price", "notes", "created_at", "updated_at",
	)

	OrderLines = query.NewTable[domain.OrderLine]("order_lines",
		"id", "order_id", "product_id", "quantity", "price",
	)
)
