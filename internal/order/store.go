package order

import (
	"context"
	"time"
)

type Item struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Delivery is the fulfilment choice copied from the checkout draft when the
// order is placed.
type Delivery struct {
	HomeDelivery  bool   `json:"home_delivery"`
	PickupPointID string `json:"pickup_point_id,omitempty"`
	Street        string `json:"street,omitempty"`
	City          string `json:"city,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Instructions  string `json:"instructions,omitempty"`
	PaymentMethod string `json:"payment_method"`
}

type Order struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Items      []Item    `json:"items"`
	TotalCents int64     `json:"total_cents"`
	Status     string    `json:"status"`
	Delivery   Delivery  `json:"delivery"`
	CreatedAt  time.Time `json:"created_at"`
}

const StatusNew = "NEW"

type Store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, bool, error)
	Ping(ctx context.Context) error
}
