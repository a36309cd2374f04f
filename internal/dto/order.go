package dto

import "time"

// LineItemPayload is a line item as accepted and exposed via transport.
type LineItemPayload struct {
	ItemID    string  `json:"item_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CreateOrderRequest is the placement payload.
type CreateOrderRequest struct {
	OwnerID       string            `json:"owner_id"`
	MerchantID    string            `json:"merchant_id"`
	Items         []LineItemPayload `json:"items"`
	TotalAmount   float64           `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	Fulfillment   string            `json:"fulfillment"`
	ScheduledAt   *time.Time        `json:"scheduled_at,omitempty"`
}

// OrderCreatedResponse is what a successful placement returns.
type OrderCreatedResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	PickupOTP string    `json:"pickup_otp"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SetStatusRequest is the transition payload.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// OrderStatusResponse reflects a committed transition.
type OrderStatusResponse struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderListItem is one enriched row of a listing.
type OrderListItem struct {
	ID          string            `json:"id"`
	Code        string            `json:"code"`
	OwnerID     string            `json:"owner_id"`
	OwnerName   string            `json:"owner_name"`
	OwnerPhone  string            `json:"owner_phone"`
	MerchantID  string            `json:"merchant_id"`
	Items       []LineItemPayload `json:"items"`
	TotalAmount float64           `json:"total_amount"`
	Fulfillment string            `json:"fulfillment"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
