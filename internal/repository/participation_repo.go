package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// ParticipationFilter narrows participation queries.
type ParticipationFilter struct {
	Kind *string
	// WithoutIndividualDueDate keeps only participations bound to the
	// exercise-wide due date.
	WithoutIndividualDueDate bool
}

// ParticipationRepository exposes persistence helpers for participations.
type ParticipationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Participation, error)
	GetByBuildPlanKey(ctx context.Context, planKey string) (models.Participation, error)
	GetByExerciseAndKind(ctx context.Context, exerciseID uint, kind string) (models.Participation, error)
	ListByExercise(ctx context.Context, exerciseID uint, filter ParticipationFilter) ([]models.Participation, error)
	SetLocked(ctx context.Context, id uint, locked bool) error
}

// NewParticipationRepository constructs a participation repository.
func NewParticipationRepository(db *gorm.DB) ParticipationRepository {
	return &participationRepository{db: db}
}

type participationRepository struct {
	db *gorm.DB
}

func (r *participationRepository) GetByID(ctx context.Context, id uint) (models.Participation, error) {
	var participation models.Participation
	if err := r.db.WithContext(ctx).Preload("Exercise").First(&participation, id).Error; err != nil {
		return models.Participation{}, err
	}
	return participation, nil
}

func (r *participationRepository) GetByBuildPlanKey(ctx context.Context, planKey string) (models.Participation, error) {
	var participation models.Participation
	err := r.db.WithContext(ctx).
		Preload("Exercise").
		Where("build_plan_key = ?", planKey).
		First(&participation).Error
	if err != nil {
		return models.Participation{}, err
	}
	return participation, nil
}

func (r *participationRepository) GetByExerciseAndKind(ctx context.Context, exerciseID uint, kind string) (models.Participation, error) {
	var participation models.Participation
	err := r.db.WithContext(ctx).
		Preload("Exercise").
		Where("exercise_id = ? AND kind = ?", exerciseID, kind).
		First(&participation).Error
	if err != nil {
		return models.Participation{}, err
	}
	return participation, nil
}

func (r *participationRepository) ListByExercise(ctx context.Context, exerciseID uint, filter ParticipationFilter) ([]models.Participation, error) {
	query := r.db.WithContext(ctx).Where("exercise_id = ?", exerciseID)
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.WithoutIndividualDueDate {
		query = query.Where("individual_due_date IS NULL")
	}

	var participations []models.Participation
	if err := query.Order("id ASC").Find(&participations).Error; err != nil {
		return nil, err
	}
	return participations, nil
}

func (r *participationRepository) SetLocked(ctx context.Context, id uint, locked bool) error {
	return r.db.WithContext(ctx).Model(&models.Participation{}).
		Where("id = ?", id).
		UpdateColumn("locked", locked).Error
}
