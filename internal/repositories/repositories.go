package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"inos/internal/models/db_models"
	"inos/pkg/utils"
)

type UserRepository interface {
	// EnsureProfile creates the profile row when it does not exist yet. Existing rows are left untouched.
	EnsureProfile(ctx context.Context, id uuid.UUID, email, name string) error
	FindById(ctx context.Context, id uuid.UUID) (*db_models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update db_models.ProfileUpdate) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, plan string, expiresAt time.Time) error
}

type AnalysisRepository interface {
	InsertSkinAnalysis(ctx context.Context, row *db_models.SkinAnalysis) error
	InsertFullFaceAnalysis(ctx context.Context, row *db_models.FullFaceAnalysis) error
	ListSkinAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.SkinAnalysis, error)
	ListFullFaceAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.FullFaceAnalysis, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, order *db_models.Order) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Order, error)
}

type PaymentRepository interface {
	Insert(ctx context.Context, payment *db_models.Payment) error
}

type CartRepository interface {
	Upsert(ctx context.Context, cart *db_models.Cart) error
	FindByUser(ctx context.Context, userID uuid.UUID) (*db_models.Cart, error)
}

// PhotoStore uploads a photo and returns its public https URL.
type PhotoStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Backend groups the remote repositories. Photos may be nil when the backend has no object storage.
type Backend struct {
	Users    UserRepository
	Analyses AnalysisRepository
	Orders   OrderRepository
	Payments PaymentRepository
	Carts    CartRepository
	Photos   PhotoStore
}

const uniqueViolation = "23505"

// translateError maps driver errors onto the service sentinels.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, utils.ErrDuplicateRecord)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, utils.ErrDuplicateRecord)
	}
	return fmt.Errorf("%s: %w: %v", op, utils.ErrDatabaseError, err)
}

// NewGormBackend talks to Postgres directly. It has no object storage, so Photos stays nil.
func NewGormBackend(db *gorm.DB) *Backend {
	return &Backend{
		Users:    NewUserRepository(db),
		Analyses: NewAnalysisRepository(db),
		Orders:   NewOrderRepository(db),
		Payments: NewPaymentRepository(db),
		Carts:    NewCartRepository(db),
	}
}

// Migrate creates the remote tables for the direct-Postgres backend.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&db_models.User{},
		&db_models.SkinAnalysis{},
		&db_models.FullFaceAnalysis{},
		&db_models.Order{},
		&db_models.Payment{},
		&db_models.Cart{},
	)
}
