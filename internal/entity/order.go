package entity

import "time"

// FulfillmentMode distinguishes walk-up orders from scheduled pickups.
type FulfillmentMode string

const (
	FulfillmentInstant  FulfillmentMode = "instant"
	FulfillmentPreorder FulfillmentMode = "preorder"
)

// LineItem is a single menu item position inside an order.
type LineItem struct {
	ItemID    string  `json:"item_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is the central entity of the canteen backend. It lives in the orders
// collection snapshot and is mirrored record-by-record into the replica table.
type Order struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	OwnerID       string          `json:"owner_id"`
	MerchantID    string          `json:"merchant_id"`
	Items         []LineItem      `json:"items"`
	TotalAmount   float64         `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Fulfillment   FulfillmentMode `json:"fulfillment"`
	ScheduledAt   *time.Time      `json:"scheduled_at,omitempty"`
	PickupOTP     string          `json:"pickup_otp"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
