package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/connector"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/observability"
	"github.com/noah-isme/gradia-go-api/internal/repository"
)

// DefaultCombineLead is how long before the release date the template
// repository history gets squashed.
const DefaultCombineLead = 15 * time.Second

// ScheduleService owns the due-date timers of all exercises. Pending timers
// are mirrored into durable rows so a restart can rebuild them; a generation
// token per exercise turns timers that outlived a reschedule into no-ops.
type ScheduleService interface {
	// ScheduleForExercise drops the exercise's pending timers and recreates
	// them from its current dates under a fresh generation.
	ScheduleForExercise(ctx context.Context, exerciseID uint) error
	// RecoverPendingTasks rebuilds in-memory timers from the durable rows,
	// firing overdue ones immediately. Called once on startup.
	RecoverPendingTasks(ctx context.Context) error
	PendingTasks(ctx context.Context, exerciseID uint) ([]models.ScheduledTask, error)
	// Stop cancels all in-memory timers. Durable rows stay for the next start.
	Stop()
}

type scheduleService struct {
	tasks          repository.ScheduledTaskRepository
	exercises      repository.ExerciseRepository
	participations repository.ParticipationRepository
	grading        GradingService
	submissions    SubmissionService
	repoAccess     connector.RepositoryAccess
	combineLead    time.Duration
	logger         zerolog.Logger
	now            func() time.Time

	mu     sync.Mutex
	timers map[uint]exerciseTimer
}

type exerciseTimer struct {
	exerciseID uint
	timer      *time.Timer
}

// NewScheduleService constructs the due-date scheduler.
func NewScheduleService(
	taskRepo repository.ScheduledTaskRepository,
	exerciseRepo repository.ExerciseRepository,
	participationRepo repository.ParticipationRepository,
	grading GradingService,
	submissions SubmissionService,
	repoAccess connector.RepositoryAccess,
	combineLead time.Duration,
	logger zerolog.Logger,
) ScheduleService {
	if combineLead <= 0 {
		combineLead = DefaultCombineLead
	}
	return &scheduleService{
		tasks:          taskRepo,
		exercises:      exerciseRepo,
		participations: participationRepo,
		grading:        grading,
		submissions:    submissions,
		repoAccess:     repoAccess,
		combineLead:    combineLead,
		logger:         logger.With().Str("component", "schedule_service").Logger(),
		now:            time.Now,
		timers:         make(map[uint]exerciseTimer),
	}
}

func (s *scheduleService) ScheduleForExercise(ctx context.Context, exerciseID uint) error {
	generation, err := s.exercises.BumpScheduleGeneration(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}

	exercise, err := s.exercises.GetByID(ctx, exerciseID)
	if err != nil {
		return err
	}

	planned, err := s.planTasks(ctx, exercise, generation)
	if err != nil {
		return err
	}

	// The durable rows are the source of truth; in-memory timers are rebuilt
	// from them after the swap so both views agree.
	if err := s.tasks.Replace(ctx, exerciseID, planned); err != nil {
		return err
	}
	pending, err := s.tasks.ListPendingForExercise(ctx, exerciseID)
	if err != nil {
		return err
	}

	s.cancelTimersForExercise(exerciseID)
	for _, task := range pending {
		s.armTimer(task)
	}

	s.logger.Info().
		Uint("exercise_id", exerciseID).
		Uint64("generation", generation).
		Int("tasks", len(pending)).
		Msg("exercise schedule rebuilt")
	return nil
}

func (s *scheduleService) planTasks(ctx context.Context, exercise models.Exercise, generation uint64) ([]models.ScheduledTask, error) {
	now := s.now()
	planned := make([]models.ScheduledTask, 0, 6)

	if exercise.ReleaseDate != nil && exercise.ReleaseDate.After(now) {
		combineAt := exercise.ReleaseDate.Add(-s.combineLead)
		if combineAt.After(now) {
			planned = append(planned, models.ScheduledTask{
				ExerciseID: exercise.ID,
				Kind:       models.TaskCombineCommits,
				FireAt:     combineAt,
				Generation: generation,
			})
		}
		planned = append(planned, models.ScheduledTask{
			ExerciseID: exercise.ID,
			Kind:       models.TaskUnlock,
			FireAt:     *exercise.ReleaseDate,
			Generation: generation,
		})
	}

	if exercise.DueDate != nil && exercise.DueDate.After(now) {
		planned = append(planned, models.ScheduledTask{
			ExerciseID: exercise.ID,
			Kind:       models.TaskLock,
			FireAt:     *exercise.DueDate,
			Generation: generation,
		})
		// After-due-date tests only become visible in scores once the due date
		// passes. The instructor build run covers that when one is scheduled;
		// without such tests there is nothing to rescore.
		if exercise.BuildAndTestAfterDueDate == nil {
			needed, err := s.hasAfterDueDateTests(ctx, exercise.ID)
			if err != nil {
				return nil, err
			}
			if needed {
				planned = append(planned, models.ScheduledTask{
					ExerciseID: exercise.ID,
					Kind:       models.TaskRescore,
					FireAt:     *exercise.DueDate,
					Generation: generation,
				})
			}
		}
	}

	if exercise.BuildAndTestAfterDueDate != nil && exercise.BuildAndTestAfterDueDate.After(now) {
		planned = append(planned, models.ScheduledTask{
			ExerciseID: exercise.ID,
			Kind:       models.TaskTriggerBuild,
			FireAt:     *exercise.BuildAndTestAfterDueDate,
			Generation: generation,
		})
	}

	// Individual due dates get their own lock timers.
	kind := models.ParticipationKindStudent
	students, err := s.participations.ListByExercise(ctx, exercise.ID, repository.ParticipationFilter{Kind: &kind})
	if err != nil {
		return nil, err
	}
	for _, participation := range students {
		if participation.IndividualDueDate == nil || !participation.IndividualDueDate.After(now) {
			continue
		}
		participationID := participation.ID
		planned = append(planned, models.ScheduledTask{
			ExerciseID:      exercise.ID,
			ParticipationID: &participationID,
			Kind:            models.TaskLock,
			FireAt:          *participation.IndividualDueDate,
			Generation:      generation,
		})
	}

	return planned, nil
}

func (s *scheduleService) hasAfterDueDateTests(ctx context.Context, exerciseID uint) (bool, error) {
	exercise, err := s.exercises.GetWithTestCases(ctx, exerciseID)
	if err != nil {
		return false, err
	}
	for _, testCase := range exercise.TestCases {
		if testCase.Active && testCase.IsAfterDueDate() {
			return true, nil
		}
	}
	return false, nil
}

func (s *scheduleService) RecoverPendingTasks(ctx context.Context) error {
	pending, err := s.tasks.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, task := range pending {
		s.armTimer(task)
	}
	s.logger.Info().Int("tasks", len(pending)).Msg("pending schedule tasks recovered")
	return nil
}

func (s *scheduleService) PendingTasks(ctx context.Context, exerciseID uint) ([]models.ScheduledTask, error) {
	if _, err := s.exercises.GetByID(ctx, exerciseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return s.tasks.ListPendingForExercise(ctx, exerciseID)
}

func (s *scheduleService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *scheduleService) armTimer(task models.ScheduledTask) {
	delay := task.FireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[task.ID]; ok {
		existing.timer.Stop()
	}
	s.timers[task.ID] = exerciseTimer{
		exerciseID: task.ExerciseID,
		timer: time.AfterFunc(delay, func() {
			s.fire(task)
		}),
	}
}

func (s *scheduleService) cancelTimersForExercise(exerciseID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.timers {
		if entry.exerciseID != exerciseID {
			continue
		}
		entry.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *scheduleService) fire(task models.ScheduledTask) {
	ctx := context.Background()

	s.mu.Lock()
	delete(s.timers, task.ID)
	s.mu.Unlock()

	exercise, err := s.exercises.GetByID(ctx, task.ExerciseID)
	if err != nil {
		s.logger.Error().Err(err).Uint("task_id", task.ID).Uint("exercise_id", task.ExerciseID).Msg("schedule fire aborted, exercise lookup failed")
		return
	}
	if exercise.ScheduleGeneration != task.Generation {
		observability.StaleTimerFires().Inc()
		s.logger.Debug().
			Uint("task_id", task.ID).
			Uint64("task_generation", task.Generation).
			Uint64("current_generation", exercise.ScheduleGeneration).
			Msg("stale schedule timer dropped")
		return
	}

	if err := s.execute(ctx, exercise, task); err != nil {
		s.logger.Error().Err(err).Uint("task_id", task.ID).Str("kind", task.Kind).Msg("schedule task failed")
		return
	}
	if err := s.tasks.MarkFired(ctx, task.ID, s.now()); err != nil {
		s.logger.Error().Err(err).Uint("task_id", task.ID).Msg("failed to mark schedule task fired")
	}
	observability.ScheduledTasksFired().WithLabelValues(task.Kind).Inc()
	s.logger.Info().Uint("exercise_id", task.ExerciseID).Str("kind", task.Kind).Msg("schedule task fired")
}

func (s *scheduleService) execute(ctx context.Context, exercise models.Exercise, task models.ScheduledTask) error {
	switch task.Kind {
	case models.TaskLock:
		return s.lockParticipations(ctx, exercise, task.ParticipationID)
	case models.TaskUnlock:
		return s.unlockParticipations(ctx, exercise)
	case models.TaskTriggerBuild:
		return s.submissions.TriggerInstructorBuildForExercise(ctx, exercise.ID)
	case models.TaskRescore:
		_, err := s.grading.UpdateResultsForExercise(ctx, exercise.ID)
		return err
	case models.TaskCombineCommits:
		return s.combineTemplateCommits(ctx, exercise)
	default:
		s.logger.Warn().Str("kind", task.Kind).Msg("unknown schedule task kind ignored")
		return nil
	}
}

func (s *scheduleService) lockParticipations(ctx context.Context, exercise models.Exercise, participationID *uint) error {
	var targets []models.Participation
	if participationID != nil {
		participation, err := s.participations.GetByID(ctx, *participationID)
		if err != nil {
			return err
		}
		targets = []models.Participation{participation}
	} else {
		kind := models.ParticipationKindStudent
		students, err := s.participations.ListByExercise(ctx, exercise.ID, repository.ParticipationFilter{
			Kind:                     &kind,
			WithoutIndividualDueDate: true,
		})
		if err != nil {
			return err
		}
		targets = students
	}

	var failed int
	for _, participation := range targets {
		if err := s.repoAccess.SetPermissionsToReadOnly(ctx, participation.RepositorySlug); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("participation_id", participation.ID).Msg("repository lock failed")
			continue
		}
		if err := s.participations.SetLocked(ctx, participation.ID, true); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("participation_id", participation.ID).Msg("lock flag update failed")
		}
	}
	if failed > 0 {
		s.logger.Warn().Uint("exercise_id", exercise.ID).Int("failed", failed).Int("total", len(targets)).Msg("some repositories could not be locked")
	}
	return nil
}

func (s *scheduleService) unlockParticipations(ctx context.Context, exercise models.Exercise) error {
	kind := models.ParticipationKindStudent
	students, err := s.participations.ListByExercise(ctx, exercise.ID, repository.ParticipationFilter{Kind: &kind})
	if err != nil {
		return err
	}
	for _, participation := range students {
		if err := s.repoAccess.Unlock(ctx, participation.RepositorySlug); err != nil {
			s.logger.Error().Err(err).Uint("participation_id", participation.ID).Msg("repository unlock failed")
			continue
		}
		if err := s.participations.SetLocked(ctx, participation.ID, false); err != nil {
			s.logger.Error().Err(err).Uint("participation_id", participation.ID).Msg("unlock flag update failed")
		}
	}
	return nil
}

func (s *scheduleService) combineTemplateCommits(ctx context.Context, exercise models.Exercise) error {
	template, err := s.participations.GetByExerciseAndKind(ctx, exercise.ID, models.ParticipationKindTemplate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.repoAccess.CombineTemplateCommits(ctx, template.RepositorySlug)
}
