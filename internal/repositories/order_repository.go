package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inos/internal/models/db_models"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (o *orderRepository) Insert(ctx context.Context, order *db_models.Order) error {
	return translateError("insert order", o.db.WithContext(ctx).Create(order).Error)
}

func (o *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Order, error) {
	var rows []db_models.Order
	err := o.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translateError("list orders", err)
	}
	return rows, nil
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (p *paymentRepository) Insert(ctx context.Context, payment *db_models.Payment) error {
	return translateError("insert payment", p.db.WithContext(ctx).Create(payment).Error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// Upsert keeps one cart row per user.
func (c *cartRepository) Upsert(ctx context.Context, cart *db_models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	cart.UpdatedAt = time.Now().UTC()
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(cart).Error
	return translateError("upsert cart", err)
}

func (c *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*db_models.Cart, error) {
	var cart db_models.Cart
	err := c.db.WithContext(ctx).First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError("find cart", err)
	}
	return &cart, nil
}
