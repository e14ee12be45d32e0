package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// ResultRepository exposes persistence helpers for results and their feedback.
type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	Save(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id uint) (models.Result, error)
	GetBySubmission(ctx context.Context, submissionID uint) (models.Result, error)
	GetLatestForParticipation(ctx context.Context, participationID uint) (models.Result, error)
	ListLatestByExercise(ctx context.Context, exerciseID uint) ([]models.Result, error)
	// ReplaceFeedback swaps the whole feedback list of a result, renumbering
	// ordinals so the display order matches the slice order.
	ReplaceFeedback(ctx context.Context, result *models.Result, feedbacks []models.Feedback) error
}

// NewResultRepository constructs a result repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

type resultRepository struct {
	db *gorm.DB
}

func (r *resultRepository) Create(ctx context.Context, result *models.Result) error {
	for i := range result.Feedbacks {
		result.Feedbacks[i].Ordinal = i
	}
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *resultRepository) Save(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Omit("Feedbacks").Save(result).Error
}

func (r *resultRepository) GetByID(ctx context.Context, id uint) (models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Preload("Feedbacks", feedbackOrder).
		First(&result, id).Error
	if err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (r *resultRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Preload("Feedbacks", feedbackOrder).
		Where("submission_id = ?", submissionID).
		Order("id DESC").
		First(&result).Error
	if err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (r *resultRepository) GetLatestForParticipation(ctx context.Context, participationID uint) (models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Preload("Feedbacks", feedbackOrder).
		Where("participation_id = ?", participationID).
		Order("id DESC").
		First(&result).Error
	if err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (r *resultRepository) ListLatestByExercise(ctx context.Context, exerciseID uint) ([]models.Result, error) {
	var results []models.Result
	err := r.db.WithContext(ctx).
		Preload("Feedbacks", feedbackOrder).
		Joins("JOIN participations ON participations.id = results.participation_id").
		Where("participations.exercise_id = ?", exerciseID).
		Where("results.id IN (?)", r.db.Model(&models.Result{}).Select("MAX(id)").Group("participation_id")).
		Order("results.participation_id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) ReplaceFeedback(ctx context.Context, result *models.Result, feedbacks []models.Feedback) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The result row has to exist before feedback can reference it.
		if result.ID == 0 {
			if err := tx.Omit("Feedbacks").Create(result).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Omit("Feedbacks").Save(result).Error; err != nil {
				return err
			}
			if err := tx.Where("result_id = ?", result.ID).Delete(&models.Feedback{}).Error; err != nil {
				return err
			}
		}
		for i := range feedbacks {
			feedbacks[i].ID = 0
			feedbacks[i].ResultID = result.ID
			feedbacks[i].Ordinal = i
		}
		if len(feedbacks) > 0 {
			if err := tx.Create(&feedbacks).Error; err != nil {
				return err
			}
		}
		result.Feedbacks = feedbacks
		return nil
	})
}
