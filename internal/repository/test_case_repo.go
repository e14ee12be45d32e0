package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// TestCaseRepository exposes persistence helpers for exercise test cases.
type TestCaseRepository interface {
	ListByExercise(ctx context.Context, exerciseID uint) ([]models.TestCase, error)
	ListActiveByExercise(ctx context.Context, exerciseID uint) ([]models.TestCase, error)
	GetByID(ctx context.Context, id uint) (models.TestCase, error)
	Create(ctx context.Context, testCase *models.TestCase) error
	Save(ctx context.Context, testCase *models.TestCase) error
	SaveAll(ctx context.Context, testCases []models.TestCase) error
}

// NewTestCaseRepository constructs a test case repository.
func NewTestCaseRepository(db *gorm.DB) TestCaseRepository {
	return &testCaseRepository{db: db}
}

type testCaseRepository struct {
	db *gorm.DB
}

func (r *testCaseRepository) ListByExercise(ctx context.Context, exerciseID uint) ([]models.TestCase, error) {
	var testCases []models.TestCase
	err := r.db.WithContext(ctx).
		Where("exercise_id = ?", exerciseID).
		Order("name ASC").
		Find(&testCases).Error
	if err != nil {
		return nil, err
	}
	return testCases, nil
}

func (r *testCaseRepository) ListActiveByExercise(ctx context.Context, exerciseID uint) ([]models.TestCase, error) {
	var testCases []models.TestCase
	err := r.db.WithContext(ctx).
		Where("exercise_id = ? AND active = ?", exerciseID, true).
		Order("name ASC").
		Find(&testCases).Error
	if err != nil {
		return nil, err
	}
	return testCases, nil
}

func (r *testCaseRepository) GetByID(ctx context.Context, id uint) (models.TestCase, error) {
	var testCase models.TestCase
	if err := r.db.WithContext(ctx).First(&testCase, id).Error; err != nil {
		return models.TestCase{}, err
	}
	return testCase, nil
}

func (r *testCaseRepository) Create(ctx context.Context, testCase *models.TestCase) error {
	return r.db.WithContext(ctx).Create(testCase).Error
}

func (r *testCaseRepository) Save(ctx context.Context, testCase *models.TestCase) error {
	return r.db.WithContext(ctx).Save(testCase).Error
}

func (r *testCaseRepository) SaveAll(ctx context.Context, testCases []models.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&testCases).Error
}
