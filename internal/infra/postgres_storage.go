package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inos/internal/store"
)

// ClientState is one persisted blob of local state.
type ClientState struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ClientState) TableName() string { return "client_states" }

type PostgresStorage struct {
	db *gorm.DB
}

func NewPostgresStorage(db *gorm.DB) (*PostgresStorage, error) {
	if err := db.AutoMigrate(&ClientState{}); err != nil {
		return nil, fmt.Errorf("migrate client_states: %w", err)
	}
	return &PostgresStorage{db: db}, nil
}

func (p *PostgresStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var row ClientState
	err := p.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return row.Value, nil
}

func (p *PostgresStorage) Save(ctx context.Context, key string, value []byte) error {
	row := ClientState{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Remove(ctx context.Context, key string) error {
	if err := p.db.WithContext(ctx).Delete(&ClientState{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
