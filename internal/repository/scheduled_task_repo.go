package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// ScheduledTaskRepository persists the durable projection of pending due-date
// timers. Live timers are rebuilt from these rows after a restart.
type ScheduledTaskRepository interface {
	// Replace swaps the full pending task set of an exercise in one transaction.
	Replace(ctx context.Context, exerciseID uint, tasks []models.ScheduledTask) error
	ListPending(ctx context.Context) ([]models.ScheduledTask, error)
	ListPendingForExercise(ctx context.Context, exerciseID uint) ([]models.ScheduledTask, error)
	MarkFired(ctx context.Context, id uint, firedAt time.Time) error
	DeleteForExercise(ctx context.Context, exerciseID uint) error
}

// NewScheduledTaskRepository constructs a scheduled task repository.
func NewScheduledTaskRepository(db *gorm.DB) ScheduledTaskRepository {
	return &scheduledTaskRepository{db: db}
}

type scheduledTaskRepository struct {
	db *gorm.DB
}

func (r *scheduledTaskRepository) Replace(ctx context.Context, exerciseID uint, tasks []models.ScheduledTask) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("exercise_id = ? AND fired_at IS NULL", exerciseID).Delete(&models.ScheduledTask{}).Error
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Create(&tasks).Error
	})
}

func (r *scheduledTaskRepository) ListPending(ctx context.Context) ([]models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("fired_at IS NULL").
		Order("fire_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *scheduledTaskRepository) ListPendingForExercise(ctx context.Context, exerciseID uint) ([]models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("exercise_id = ? AND fired_at IS NULL", exerciseID).
		Order("fire_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *scheduledTaskRepository) MarkFired(ctx context.Context, id uint, firedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("id = ?", id).
		UpdateColumn("fired_at", firedAt).Error
}

func (r *scheduledTaskRepository) DeleteForExercise(ctx context.Context, exerciseID uint) error {
	return r.db.WithContext(ctx).
		Where("exercise_id = ? AND fired_at IS NULL", exerciseID).
		Delete(&models.ScheduledTask{}).Error
}
