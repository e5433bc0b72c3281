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

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (u *userRepository) EnsureProfile(ctx context.Context, id uuid.UUID, email, name string) error {
	user := db_models.User{ID: id, Email: email}
	if name != "" {
		user.Name = &name
	}
	err := u.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&user).Error
	return translateError("ensure profile", err)
}

func (u *userRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.User, error) {
	var user db_models.User
	err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError("find user", err)
	}

	return &user, nil
}

func (u *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update db_models.ProfileUpdate) error {
	err := u.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ?", id).
		Updates(update.Columns(time.Now().UTC())).Error
	return translateError("update profile", err)
}

func (u *userRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, plan string, expiresAt time.Time) error {
	err := u.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"subscription_plan":       plan,
			"subscription_expires_at": expiresAt,
			"updated_at":              time.Now().UTC(),
		}).Error
	return translateError("update subscription", err)
}
