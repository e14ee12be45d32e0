package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// SubmissionRepository exposes persistence helpers for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Save(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	// FindByParticipationAndCommit returns the newest submission for the commit,
	// or gorm.ErrRecordNotFound.
	FindByParticipationAndCommit(ctx context.Context, participationID uint, commitHash string) (models.Submission, error)
	// FindLatestPending returns the newest submitted submission without a result.
	FindLatestPending(ctx context.Context, participationID uint) (models.Submission, error)
	ListByParticipation(ctx context.Context, participationID uint) ([]models.Submission, error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Save(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Result").
		Preload("Result.Feedbacks", feedbackOrder).
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) FindByParticipationAndCommit(ctx context.Context, participationID uint, commitHash string) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Result").
		Preload("Result.Feedbacks", feedbackOrder).
		Where("participation_id = ? AND commit_hash = ?", participationID, commitHash).
		Order("id DESC").
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) FindLatestPending(ctx context.Context, participationID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("participation_id = ? AND submitted = ?", participationID, true).
		Where("id NOT IN (?)", r.db.Model(&models.Result{}).Select("submission_id").Where("participation_id = ?", participationID)).
		Order("id DESC").
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByParticipation(ctx context.Context, participationID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Result").
		Preload("Result.Feedbacks", feedbackOrder).
		Where("participation_id = ?", participationID).
		Order("id ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func feedbackOrder(db *gorm.DB) *gorm.DB {
	return db.Order("feedbacks.ordinal ASC")
}
