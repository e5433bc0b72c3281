package db_models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order amounts are in cents.
type Order struct {
	BaseModel
	UserID          uuid.UUID                            `gorm:"type:uuid;index;not null" json:"user_id"`
	Status          OrderStatus                          `gorm:"not null" json:"status"`
	Items           datatypes.JSONSlice[OrderLine]       `gorm:"type:jsonb" json:"items"`
	Subtotal        int64                                `json:"subtotal"`
	Shipping        int64                                `json:"shipping"`
	Total           int64                                `json:"total"`
	PaymentIntentID *string                              `json:"payment_intent_id"`
	ShippingAddress *datatypes.JSONType[ShippingAddress] `gorm:"type:jsonb" json:"shipping_address"`
	TrackingNumber  *string                              `json:"tracking_number"`
	UpdatedAt       time.Time                            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type Cart struct {
	ID        uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID                     `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Items     datatypes.JSONSlice[CartLine] `gorm:"type:jsonb" json:"items"`
	UpdatedAt time.Time                     `gorm:"autoUpdateTime" json:"updated_at"`
}

type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (Cart) TableName() string { return "carts" }
