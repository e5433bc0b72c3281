package request_models

type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type ShippingAddressRequest struct {
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type CheckoutRequest struct {
	ShippingAddress *ShippingAddressRequest `json:"shippingAddress"`
}

type SubscribeRequest struct {
	Plan string `json:"plan" binding:"required"`
}
