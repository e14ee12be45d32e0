package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
)

// ErrExerciseNotFound indicates the exercise cannot be located.
var ErrExerciseNotFound = errors.New("exercise not found")

// ErrTestCaseNotFound indicates a referenced test case does not belong to the exercise.
var ErrTestCaseNotFound = errors.New("test case not found for exercise")

// ErrNegativeWeight indicates a rejected grading configuration change.
var ErrNegativeWeight = errors.New("test case weight must not be negative")

// TestCaseService maintains the registry of test cases per exercise. Test
// cases appear when their name first shows up in build feedback and are
// deactivated, never deleted, when a later full run no longer reports them.
type TestCaseService interface {
	List(ctx context.Context, exerciseID uint) ([]dto.TestCaseResponse, error)
	// Reconcile upserts an active test case per observed name and deactivates
	// the active ones that are absent. It reports whether anything changed.
	Reconcile(ctx context.Context, exerciseID uint, observedNames []string) (bool, error)
	UpdateWeights(ctx context.Context, exerciseID uint, payload dto.TestCaseWeightsRequest) ([]dto.TestCaseResponse, error)
	ResetWeights(ctx context.Context, exerciseID uint) ([]dto.TestCaseResponse, error)
}

type testCaseService struct {
	testCases repository.TestCaseRepository
	exercises repository.ExerciseRepository
	events    EventService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTestCaseService constructs a test case service.
func NewTestCaseService(testCaseRepo repository.TestCaseRepository, exerciseRepo repository.ExerciseRepository, events EventService, validate *validator.Validate, logger zerolog.Logger) TestCaseService {
	return &testCaseService{
		testCases: testCaseRepo,
		exercises: exerciseRepo,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "test_case_service").Logger(),
	}
}

func (s *testCaseService) List(ctx context.Context, exerciseID uint) ([]dto.TestCaseResponse, error) {
	if _, err := s.exercises.GetByID(ctx, exerciseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	testCases, err := s.testCases.ListByExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	return dto.NewTestCaseResponses(testCases), nil
}

func (s *testCaseService) Reconcile(ctx context.Context, exerciseID uint, observedNames []string) (bool, error) {
	existing, err := s.testCases.ListByExercise(ctx, exerciseID)
	if err != nil {
		return false, err
	}

	observed := make(map[string]string, len(observedNames))
	for _, name := range observedNames {
		observed[strings.ToLower(name)] = name
	}

	known := make(map[string]bool, len(existing))
	changed := false
	toSave := make([]models.TestCase, 0)

	for i := range existing {
		testCase := existing[i]
		key := strings.ToLower(testCase.Name)
		known[key] = true
		if _, present := observed[key]; present {
			if !testCase.Active {
				testCase.Active = true
				toSave = append(toSave, testCase)
				changed = true
			}
		} else if testCase.Active {
			testCase.Active = false
			toSave = append(toSave, testCase)
			changed = true
		}
	}

	for key, name := range observed {
		if known[key] {
			continue
		}
		created := models.TestCase{
			ExerciseID:      exerciseID,
			Name:            name,
			Weight:          1,
			BonusMultiplier: 1,
			BonusPoints:     0,
			Active:          true,
			Visibility:      models.VisibilityAlways,
		}
		if err := s.testCases.Create(ctx, &created); err != nil {
			return changed, err
		}
		changed = true
	}

	if len(toSave) > 0 {
		if err := s.testCases.SaveAll(ctx, toSave); err != nil {
			return changed, err
		}
	}

	if changed {
		s.logger.Info().Uint("exercise_id", exerciseID).Int("observed", len(observedNames)).Msg("test case registry reconciled")
		s.events.NotifyTestCasesChanged(ctx, exerciseID)
	}
	return changed, nil
}

func (s *testCaseService) UpdateWeights(ctx context.Context, exerciseID uint, payload dto.TestCaseWeightsRequest) ([]dto.TestCaseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	if _, err := s.exercises.GetByID(ctx, exerciseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	existing, err := s.testCases.ListByExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]int, len(existing))
	for i := range existing {
		byID[existing[i].ID] = i
	}

	// Reject the whole batch before mutating anything.
	for _, update := range payload.Updates {
		if update.Weight < 0 {
			return nil, ErrNegativeWeight
		}
		if _, ok := byID[update.ID]; !ok {
			return nil, ErrTestCaseNotFound
		}
	}

	changed := false
	toSave := make([]models.TestCase, 0, len(payload.Updates))
	for _, update := range payload.Updates {
		testCase := existing[byID[update.ID]]
		updated := testCase
		updated.Weight = update.Weight
		if update.BonusMultiplier != nil {
			updated.BonusMultiplier = *update.BonusMultiplier
		}
		if update.BonusPoints != nil {
			updated.BonusPoints = *update.BonusPoints
		}
		if update.Visibility != nil {
			updated.Visibility = *update.Visibility
		}
		if updated != testCase {
			changed = true
			existing[byID[update.ID]] = updated
			toSave = append(toSave, updated)
		}
	}

	if changed {
		if err := s.testCases.SaveAll(ctx, toSave); err != nil {
			return nil, err
		}
		if err := s.exercises.SetTestCasesChanged(ctx, exerciseID, true); err != nil {
			return nil, err
		}
		s.events.NotifyTestCasesChanged(ctx, exerciseID)
	}

	return dto.NewTestCaseResponses(existing), nil
}

func (s *testCaseService) ResetWeights(ctx context.Context, exerciseID uint) ([]dto.TestCaseResponse, error) {
	if _, err := s.exercises.GetByID(ctx, exerciseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	existing, err := s.testCases.ListByExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range existing {
		if existing[i].Weight != 1 || existing[i].BonusMultiplier != 1 || existing[i].BonusPoints != 0 {
			existing[i].Weight = 1
			existing[i].BonusMultiplier = 1
			existing[i].BonusPoints = 0
			changed = true
		}
	}

	if changed {
		if err := s.testCases.SaveAll(ctx, existing); err != nil {
			return nil, err
		}
		if err := s.exercises.SetTestCasesChanged(ctx, exerciseID, true); err != nil {
			return nil, err
		}
		s.events.NotifyTestCasesChanged(ctx, exerciseID)
	}

	return dto.NewTestCaseResponses(existing), nil
}
