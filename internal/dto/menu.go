package dto

// MenuItemPayload is a menu item as accepted and exposed via transport.
type MenuItemPayload struct {
	ID         string  `json:"id"`
	MerchantID string  `json:"merchant_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
}
