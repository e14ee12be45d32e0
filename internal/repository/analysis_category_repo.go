package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// AnalysisCategoryRepository exposes persistence helpers for static analysis categories.
type AnalysisCategoryRepository interface {
	ListByExercise(ctx context.Context, exerciseID uint) ([]models.AnalysisCategory, error)
	Save(ctx context.Context, category *models.AnalysisCategory) error
}

// NewAnalysisCategoryRepository constructs an analysis category repository.
func NewAnalysisCategoryRepository(db *gorm.DB) AnalysisCategoryRepository {
	return &analysisCategoryRepository{db: db}
}

type analysisCategoryRepository struct {
	db *gorm.DB
}

func (r *analysisCategoryRepository) ListByExercise(ctx context.Context, exerciseID uint) ([]models.AnalysisCategory, error) {
	var categories []models.AnalysisCategory
	err := r.db.WithContext(ctx).
		Where("exercise_id = ?", exerciseID).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *analysisCategoryRepository) Save(ctx context.Context, category *models.AnalysisCategory) error {
	return r.db.WithContext(ctx).Save(category).Error
}
