package models

import "time"

// Product represents a catalog product. The catalog owns it; the cart and
// order core only reads it.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	Category      string    `db:"category" json:"category"`
	ImageURL      string    `db:"image_url" json:"image_url"`
	Price         int64     `db:"price" json:"price"`
	InStock       bool      `db:"in_stock" json:"in_stock"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CartItem is one (user, product) line of a cart
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// CartLine is a cart item joined with the current catalog data.
type CartLine struct {
	CartItem
	ProductName string `db:"product_name" json:"product_name"`
	ImageURL    string `db:"image_url" json:"image_url"`
	Category    string `db:"category" json:"category"`
	UnitPrice   int64  `db:"unit_price" json:"unit_price"`
	InStock     bool   `db:"in_stock" json:"in_stock"`
	LineTotal   int64  `db:"-" json:"line_total"`
}

// Order represents a checked-out cart
type Order struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	TotalPrice int64     `db:"total_price" json:"total_price"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is the frozen snapshot of a cart line at checkout
type OrderItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	UnitPrice int64 `db:"unit_price" json:"unit_price"`
}

// OrderItemView is an order item with product display fields looked up at
// query time. ProductFound is false when the product no longer exists.
type OrderItemView struct {
	OrderItem
	ProductName  string `db:"product_name" json:"product_name"`
	ImageURL     string `db:"image_url" json:"image_url"`
	ProductFound bool   `db:"product_found" json:"product_found"`
}

// OrderDetails is an order together with its items.
type OrderDetails struct {
	Order
	Items []OrderItemView `json:"items"`
}

// MaxLineQuantity is the largest quantity a single cart line may hold
const MaxLineQuantity = 999

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCancelled = "cancelled"
)

// ToggleResult reports what a wishlist toggle did.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
)
