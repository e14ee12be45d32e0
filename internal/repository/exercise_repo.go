package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// ExerciseRepository exposes persistence helpers for exercises.
type ExerciseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Exercise, error)
	GetWithTestCases(ctx context.Context, id uint) (models.Exercise, error)
	Update(ctx context.Context, exercise *models.Exercise) error
	SetTestCasesChanged(ctx context.Context, id uint, changed bool) error
	// BumpScheduleGeneration atomically increments the exercise's schedule
	// generation and returns the new value. Stale timers compare against it.
	BumpScheduleGeneration(ctx context.Context, id uint) (uint64, error)
}

// NewExerciseRepository constructs an exercise repository.
func NewExerciseRepository(db *gorm.DB) ExerciseRepository {
	return &exerciseRepository{db: db}
}

type exerciseRepository struct {
	db *gorm.DB
}

func (r *exerciseRepository) GetByID(ctx context.Context, id uint) (models.Exercise, error) {
	var exercise models.Exercise
	if err := r.db.WithContext(ctx).First(&exercise, id).Error; err != nil {
		return models.Exercise{}, err
	}
	return exercise, nil
}

func (r *exerciseRepository) GetWithTestCases(ctx context.Context, id uint) (models.Exercise, error) {
	var exercise models.Exercise
	if err := r.db.WithContext(ctx).Preload("TestCases").First(&exercise, id).Error; err != nil {
		return models.Exercise{}, err
	}
	return exercise, nil
}

func (r *exerciseRepository) Update(ctx context.Context, exercise *models.Exercise) error {
	return r.db.WithContext(ctx).Save(exercise).Error
}

func (r *exerciseRepository) SetTestCasesChanged(ctx context.Context, id uint, changed bool) error {
	return r.db.WithContext(ctx).Model(&models.Exercise{}).
		Where("id = ?", id).
		UpdateColumn("test_cases_changed", changed).Error
}

func (r *exerciseRepository) BumpScheduleGeneration(ctx context.Context, id uint) (uint64, error) {
	err := r.db.WithContext(ctx).Model(&models.Exercise{}).
		Where("id = ?", id).
		UpdateColumn("schedule_generation", gorm.Expr("schedule_generation + 1")).Error
	if err != nil {
		return 0, err
	}

	var exercise models.Exercise
	if err := r.db.WithContext(ctx).Select("id", "schedule_generation").First(&exercise, id).Error; err != nil {
		return 0, err
	}
	return exercise.ScheduleGeneration, nil
}
