package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inos/internal/models/db_models"
)

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (a *analysisRepository) InsertSkinAnalysis(ctx context.Context, row *db_models.SkinAnalysis) error {
	return translateError("insert skin analysis", a.db.WithContext(ctx).Create(row).Error)
}

func (a *analysisRepository) InsertFullFaceAnalysis(ctx context.Context, row *db_models.FullFaceAnalysis) error {
	return translateError("insert full face analysis", a.db.WithContext(ctx).Create(row).Error)
}

func (a *analysisRepository) ListSkinAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.SkinAnalysis, error) {
	var rows []db_models.SkinAnalysis
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translateError("list skin analyses", err)
	}
	return rows, nil
}

func (a *analysisRepository) ListFullFaceAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.FullFaceAnalysis, error) {
	var rows []db_models.FullFaceAnalysis
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translateError("list full face analyses", err)
	}
	return rows, nil
}
