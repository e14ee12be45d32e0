package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/connector"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/observability"
	"github.com/noah-isme/gradia-go-api/internal/repository"
)

// ErrParticipationNotFound indicates the participation cannot be located.
var ErrParticipationNotFound = errors.New("participation not found")

// ErrSetupCommitIgnored indicates the push was the CI service's empty setup
// commit, which never becomes a submission.
var ErrSetupCommitIgnored = errors.New("setup commit ignored")

// ErrWrongBranch indicates a push to a non-default branch, which is ignored.
var ErrWrongBranch = errors.New("only the default branch is considered")

// SubmissionConfig identifies the CI service account whose setup commit is
// filtered, and the default branch submissions are accepted from.
type SubmissionConfig struct {
	CIUserName         string
	CIUserEmail        string
	SetupCommitMessage string
	DefaultBranch      string
}

// SubmissionService is the idempotent ledger of submissions per participation.
type SubmissionService interface {
	// OnPush records a VCS push as a submission. Calling it twice with the
	// same commit hash returns the same pending submission.
	OnPush(ctx context.Context, participationID uint, push connector.PushEvent) (models.Submission, error)
	// OnTestPush fans a test-repository push out to the solution and template
	// participations of the exercise as TEST submissions.
	OnTestPush(ctx context.Context, exerciseID uint, commitHash string) ([]models.Submission, error)
	// TriggerInstructorBuildForExercise creates INSTRUCTOR submissions for all
	// student participations bound to the regular due date and triggers their
	// CI builds.
	TriggerInstructorBuildForExercise(ctx context.Context, exerciseID uint) error
	LatestPending(ctx context.Context, participationID uint) (models.Submission, bool, error)
	// ListForParticipation returns the participation's submissions, newest first.
	ListForParticipation(ctx context.Context, participationID uint) ([]models.Submission, error)
}

type submissionService struct {
	submissions    repository.SubmissionRepository
	participations repository.ParticipationRepository
	vcs            connector.VersionControl
	ci             connector.ContinuousIntegration
	locks          *ParticipationLocks
	config         SubmissionConfig
	logger         zerolog.Logger
	now            func() time.Time
}

// NewSubmissionService constructs the submission ledger.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, participationRepo repository.ParticipationRepository, vcs connector.VersionControl, ci connector.ContinuousIntegration, locks *ParticipationLocks, cfg SubmissionConfig, logger zerolog.Logger) SubmissionService {
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "main"
	}
	if cfg.SetupCommitMessage == "" {
		cfg.SetupCommitMessage = "Setup"
	}
	return &submissionService{
		submissions:    submissionRepo,
		participations: participationRepo,
		vcs:            vcs,
		ci:             ci,
		locks:          locks,
		config:         cfg,
		logger:         logger.With().Str("component", "submission_service").Logger(),
		now:            time.Now,
	}
}

func (s *submissionService) OnPush(ctx context.Context, participationID uint, push connector.PushEvent) (models.Submission, error) {
	// Taken before the lock so the ledger records the most accurate date.
	submissionDate := s.now()

	participation, err := s.participations.GetByID(ctx, participationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrParticipationNotFound
		}
		return models.Submission{}, err
	}

	if push.Branch != "" && !strings.EqualFold(push.Branch, s.config.DefaultBranch) {
		return models.Submission{}, ErrWrongBranch
	}
	if s.isSetupCommit(push) {
		s.logger.Debug().Uint("participation_id", participationID).Str("commit", push.CommitHash).Msg("ignoring empty setup commit")
		return models.Submission{}, ErrSetupCommitIgnored
	}

	s.locks.Lock(participationID)
	defer s.locks.Unlock(participationID)

	existing, err := s.submissions.FindByParticipationAndCommit(ctx, participationID, push.CommitHash)
	if err == nil {
		// Duplicate webhook delivery: hand back the already recorded submission.
		s.logger.Debug().Uint("submission_id", existing.ID).Str("commit", push.CommitHash).Msg("duplicate push notification")
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, err
	}

	submissionType := models.SubmissionTypeManual
	if !participation.IsStudent() {
		submissionType = models.SubmissionTypeInstructor
	}

	submission := models.Submission{
		ParticipationID: participationID,
		CommitHash:      push.CommitHash,
		Type:            submissionType,
		SubmissionDate:  submissionDate,
		Submitted:       true,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return models.Submission{}, err
	}

	observability.SubmissionsCreated().WithLabelValues(submissionType).Inc()
	s.logger.Info().
		Uint("participation_id", participationID).
		Str("commit", push.CommitHash).
		Str("type", submissionType).
		Msg("submission recorded")
	return submission, nil
}

func (s *submissionService) OnTestPush(ctx context.Context, exerciseID uint, commitHash string) ([]models.Submission, error) {
	created := make([]models.Submission, 0, 2)
	for _, kind := range []string{models.ParticipationKindSolution, models.ParticipationKindTemplate} {
		participation, err := s.participations.GetByExerciseAndKind(ctx, exerciseID, kind)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return created, err
		}

		s.locks.Lock(participation.ID)
		existing, err := s.submissions.FindByParticipationAndCommit(ctx, participation.ID, commitHash)
		if err == nil {
			s.locks.Unlock(participation.ID)
			created = append(created, existing)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.locks.Unlock(participation.ID)
			return created, err
		}

		submission := models.Submission{
			ParticipationID: participation.ID,
			CommitHash:      commitHash,
			Type:            models.SubmissionTypeTest,
			SubmissionDate:  s.now(),
			Submitted:       true,
		}
		err = s.submissions.Create(ctx, &submission)
		s.locks.Unlock(participation.ID)
		if err != nil {
			return created, err
		}
		observability.SubmissionsCreated().WithLabelValues(models.SubmissionTypeTest).Inc()
		created = append(created, submission)
	}
	return created, nil
}

func (s *submissionService) TriggerInstructorBuildForExercise(ctx context.Context, exerciseID uint) error {
	kind := models.ParticipationKindStudent
	participations, err := s.participations.ListByExercise(ctx, exerciseID, repository.ParticipationFilter{
		Kind:                     &kind,
		WithoutIndividualDueDate: true,
	})
	if err != nil {
		return err
	}

	var failed int
	for _, participation := range participations {
		if err := s.triggerBuild(ctx, participation); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("participation_id", participation.ID).Msg("instructor build trigger failed")
		}
	}

	s.logger.Info().
		Uint("exercise_id", exerciseID).
		Int("participations", len(participations)).
		Int("failed", failed).
		Msg("instructor build triggered for exercise")
	return nil
}

func (s *submissionService) triggerBuild(ctx context.Context, participation models.Participation) error {
	commitHash, err := s.vcs.LastCommitHash(ctx, participation.RepositorySlug)
	if err != nil {
		return err
	}

	s.locks.Lock(participation.ID)
	defer s.locks.Unlock(participation.ID)

	// An unresolved submission for the same commit is reused; the incoming
	// result will attach to it instead of creating a second ledger entry.
	existing, err := s.submissions.FindByParticipationAndCommit(ctx, participation.ID, commitHash)
	switch {
	case err == nil && existing.Result == nil:
	case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
		submission := models.Submission{
			ParticipationID: participation.ID,
			CommitHash:      commitHash,
			Type:            models.SubmissionTypeInstructor,
			SubmissionDate:  s.now(),
			Submitted:       true,
		}
		if err := s.submissions.Create(ctx, &submission); err != nil {
			return err
		}
		observability.SubmissionsCreated().WithLabelValues(models.SubmissionTypeInstructor).Inc()
	default:
		return err
	}

	return s.ci.TriggerBuild(ctx, participation.BuildPlanKey)
}

func (s *submissionService) LatestPending(ctx context.Context, participationID uint) (models.Submission, bool, error) {
	submission, err := s.submissions.FindLatestPending(ctx, participationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, false, nil
		}
		return models.Submission{}, false, err
	}
	return submission, true, nil
}

func (s *submissionService) ListForParticipation(ctx context.Context, participationID uint) ([]models.Submission, error) {
	if _, err := s.participations.GetByID(ctx, participationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}
	return s.submissions.ListByParticipation(ctx, participationID)
}

func (s *submissionService) isSetupCommit(push connector.PushEvent) bool {
	return strings.EqualFold(push.AuthorName, s.config.CIUserName) &&
		strings.EqualFold(push.AuthorEmail, s.config.CIUserEmail) &&
		push.CommitMessage == s.config.SetupCommitMessage
}
