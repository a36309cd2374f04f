package entity

// MenuItem is a sellable item scoped to one canteen merchant.
type MenuItem struct {
	ID         string  `json:"id"`
	MerchantID string  `json:"merchant_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
}
