package db_models

import (
	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentTypeOrder        PaymentType = "order"
	PaymentTypeSubscription PaymentType = "subscription"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	BaseModel
	UserID                uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	OrderID               *uuid.UUID    `gorm:"type:uuid;index" json:"order_id"` // nil for subscriptions
	Type                  PaymentType   `gorm:"not null" json:"type"`
	Amount                int64         `json:"amount"` // e.g., 1299 = 12.99 EUR
	Currency              string        `gorm:"size:3" json:"currency"`
	Status                PaymentStatus `gorm:"index" json:"status"`
	PaymentMethod         *string       `json:"payment_method"`
	StripePaymentIntentID *string       `json:"stripe_payment_intent_id"`
}

func (Payment) TableName() string { return "payments" }
