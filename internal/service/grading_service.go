package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/connector"
	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/observability"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/internal/score"
)

// ErrUnknownBuildPlan indicates the notification's plan key matches no participation.
var ErrUnknownBuildPlan = errors.New("no participation for build plan key")

// ErrResultNotFound indicates the participation has no graded result yet.
var ErrResultNotFound = errors.New("result not found")

const buildLogLimit = 50

// GradingService turns CI build notifications into graded results and keeps
// results consistent when the grading configuration changes.
type GradingService interface {
	// ProcessNewResult links a build notification to its submission, grades it
	// and persists the result. Redelivering the same notification updates the
	// existing result in place instead of creating a second one.
	ProcessNewResult(ctx context.Context, notification connector.BuildNotification) (models.Result, error)
	// UpdateResultsForExercise regrades the latest automatic result of every
	// participation from the current test case configuration. It returns the
	// number of updated results and clears the exercise's changed flag.
	UpdateResultsForExercise(ctx context.Context, exerciseID uint) (int, error)
	// UpdateSolutionResult regrades the solution participation's latest result
	// from the current test case configuration. Exercises without a solution
	// result are a no-op.
	UpdateSolutionResult(ctx context.Context, exerciseID uint) error
	LatestResult(ctx context.Context, participationID uint) (dto.ResultResponse, error)
}

type gradingService struct {
	results        repository.ResultRepository
	submissions    repository.SubmissionRepository
	participations repository.ParticipationRepository
	exercises      repository.ExerciseRepository
	categories     repository.AnalysisCategoryRepository
	testCases      TestCaseService
	events         EventService
	cache          ResultCacheService
	ci             connector.ContinuousIntegration
	locks          *ParticipationLocks
	logger         zerolog.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewGradingService constructs the grading orchestrator.
func NewGradingService(
	resultRepo repository.ResultRepository,
	submissionRepo repository.SubmissionRepository,
	participationRepo repository.ParticipationRepository,
	exerciseRepo repository.ExerciseRepository,
	categoryRepo repository.AnalysisCategoryRepository,
	testCases TestCaseService,
	events EventService,
	cache ResultCacheService,
	ci connector.ContinuousIntegration,
	locks *ParticipationLocks,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		results:        resultRepo,
		submissions:    submissionRepo,
		participations: participationRepo,
		exercises:      exerciseRepo,
		categories:     categoryRepo,
		testCases:      testCases,
		events:         events,
		cache:          cache,
		ci:             ci,
		locks:          locks,
		logger:         logger.With().Str("component", "grading_service").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/gradia-go-api/internal/service/grading"),
		now:            time.Now,
	}
}

func (s *gradingService) ProcessNewResult(ctx context.Context, notification connector.BuildNotification) (models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "grading.process_result")
	span.SetAttributes(
		attribute.String("grading.plan_key", notification.PlanKey),
		attribute.String("grading.commit", notification.CommitHash),
	)
	defer span.End()
	started := s.now()

	participation, err := s.participations.GetByBuildPlanKey(ctx, notification.PlanKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(ErrUnknownBuildPlan)
			span.SetStatus(codes.Error, "unknown_build_plan")
			observability.ResultsProcessed().WithLabelValues("unknown_plan").Inc()
			return models.Result{}, ErrUnknownBuildPlan
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "participation_lookup_failed")
		return models.Result{}, err
	}

	exercise, err := s.exercises.GetWithTestCases(ctx, participation.ExerciseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exercise_lookup_failed")
		return models.Result{}, err
	}

	s.locks.Lock(participation.ID)
	defer s.locks.Unlock(participation.ID)

	submission, err := s.matchSubmission(ctx, participation, notification)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_match_failed")
		return models.Result{}, err
	}
	span.SetAttributes(attribute.Int64("grading.submission_id", int64(submission.ID)))

	// Solution builds define the ground truth of which test cases exist.
	if participation.Kind == models.ParticipationKindSolution && !notification.BuildFailed {
		if err := s.reconcileTestCases(ctx, exercise, submission, notification); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "test_case_reconcile_failed")
			return models.Result{}, err
		}
		// The registry changed under us, reload the configuration.
		exercise, err = s.exercises.GetWithTestCases(ctx, participation.ExerciseID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "exercise_reload_failed")
			return models.Result{}, err
		}
	}

	result, err := s.grade(ctx, exercise, participation, &submission, notification)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_failed")
		return models.Result{}, err
	}

	s.events.PublishResult(ctx, result)
	if participation.IsStudent() {
		s.cache.StoreLatest(ctx, result)
	}

	outcome := "graded"
	if notification.BuildFailed {
		outcome = "build_failed"
	}
	observability.ResultsProcessed().WithLabelValues(outcome).Inc()
	observability.GradingDuration().WithLabelValues(result.AssessmentType).Observe(s.now().Sub(started).Seconds())

	s.logger.Info().
		Uint("participation_id", participation.ID).
		Uint("submission_id", submission.ID).
		Uint("result_id", result.ID).
		Int("score", result.Score).
		Str("result_string", result.ResultString).
		Msg("build result processed")
	return result, nil
}

// matchSubmission finds the submission a notification belongs to. Order of
// preference: the submission recorded for the commit, then the latest pending
// one, then a synthesized OTHER submission when CI reported a commit the
// ledger never saw.
func (s *gradingService) matchSubmission(ctx context.Context, participation models.Participation, notification connector.BuildNotification) (models.Submission, error) {
	if notification.CommitHash != "" {
		submission, err := s.submissions.FindByParticipationAndCommit(ctx, participation.ID, notification.CommitHash)
		if err == nil {
			return submission, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, err
		}
	}

	submission, err := s.submissions.FindLatestPending(ctx, participation.ID)
	if err == nil {
		return submission, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, err
	}

	synthesized := models.Submission{
		ParticipationID: participation.ID,
		CommitHash:      notification.CommitHash,
		Type:            models.SubmissionTypeOther,
		SubmissionDate:  s.now(),
		Submitted:       true,
	}
	if err := s.submissions.Create(ctx, &synthesized); err != nil {
		return models.Submission{}, err
	}
	observability.SubmissionsCreated().WithLabelValues(models.SubmissionTypeOther).Inc()
	s.logger.Warn().
		Uint("participation_id", participation.ID).
		Str("commit", notification.CommitHash).
		Msg("no submission matched the build notification, synthesized one")
	return synthesized, nil
}

func (s *gradingService) reconcileTestCases(ctx context.Context, exercise models.Exercise, submission models.Submission, notification connector.BuildNotification) error {
	names := make([]string, 0, len(notification.TestResults))
	for _, test := range notification.TestResults {
		names = append(names, test.Name)
	}
	if _, err := s.testCases.Reconcile(ctx, exercise.ID, names); err != nil {
		return err
	}

	if duplicates := duplicateNames(names); len(duplicates) > 0 {
		s.events.NotifyDuplicateTestCases(ctx, exercise.ID, duplicates)
	}

	// A test repository push updated the solution; the template has to be
	// rebuilt against the new tests as well.
	if submission.BelongsToTestRepository() {
		template, err := s.participations.GetByExerciseAndKind(ctx, exercise.ID, models.ParticipationKindTemplate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := s.ci.TriggerBuild(ctx, template.BuildPlanKey); err != nil {
			s.logger.Error().Err(err).Str("plan_key", template.BuildPlanKey).Msg("template build trigger failed")
		}
	}
	return nil
}

func (s *gradingService) grade(ctx context.Context, exercise models.Exercise, participation models.Participation, submission *models.Submission, notification connector.BuildNotification) (models.Result, error) {
	existing, err := s.results.GetBySubmission(ctx, submission.ID)
	haveExisting := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Result{}, err
	}

	completion := notification.CompletedAt
	if completion.IsZero() {
		completion = s.now()
	}

	if notification.BuildFailed {
		return s.persistBuildFailure(ctx, submission, existing, haveExisting, notification, completion)
	}

	feedbacks := feedbackFromNotification(notification)
	manualAssessment := haveExisting && existing.IsManual()
	if manualAssessment {
		// Keep the tutor's feedback, replace only the automatic part.
		manual := make([]models.Feedback, 0, len(existing.Feedbacks))
		for _, feedback := range existing.Feedbacks {
			if feedback.Type != models.FeedbackAutomatic {
				feedback.ID = 0
				manual = append(manual, feedback)
			}
		}
		feedbacks = append(manual, feedbacks...)
	}

	cfg, err := s.scoreConfig(ctx, exercise, manualAssessment)
	if err != nil {
		return models.Result{}, err
	}
	outcome := score.Compute(exercise.TestCases, feedbacks, cfg, s.includeAfterDueDate(exercise, participation))

	if len(outcome.DuplicateTests) > 0 {
		s.events.NotifyDuplicateTestCases(ctx, exercise.ID, outcome.DuplicateTests)
	}

	raw, _ := json.Marshal(notification)
	assessmentType := models.AssessmentAutomatic
	if manualAssessment {
		assessmentType = models.AssessmentSemiAutomatic
	}

	result := models.Result{
		SubmissionID:    submission.ID,
		ParticipationID: participation.ID,
		AssessmentType:  assessmentType,
		Score:           outcome.Score,
		Successful:      outcome.Successful,
		ResultString:    outcome.ResultString,
		Rated:           s.isRated(exercise, participation, *submission),
		CompletionDate:  &completion,
		RawPayload:      raw,
	}
	if haveExisting {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
	}

	if submission.BuildFailed {
		submission.BuildFailed = false
		if err := s.submissions.Save(ctx, submission); err != nil {
			return models.Result{}, err
		}
	}

	if err := s.results.ReplaceFeedback(ctx, &result, outcome.Feedbacks); err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (s *gradingService) persistBuildFailure(ctx context.Context, submission *models.Submission, existing models.Result, haveExisting bool, notification connector.BuildNotification, completion time.Time) (models.Result, error) {
	submission.BuildFailed = true
	if logs := filterBuildLogs(notification.BuildLogLines); len(logs) > 0 {
		raw, err := json.Marshal(logs)
		if err == nil {
			submission.BuildLogs = raw
		}
	}
	if err := s.submissions.Save(ctx, submission); err != nil {
		return models.Result{}, err
	}

	result := models.Result{
		SubmissionID:    submission.ID,
		ParticipationID: submission.ParticipationID,
		AssessmentType:  models.AssessmentAutomatic,
		Score:           0,
		Successful:      false,
		ResultString:    "No tests found",
		Rated:           true,
		CompletionDate:  &completion,
	}
	if haveExisting {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
		result.Rated = existing.Rated
	}
	if err := s.results.ReplaceFeedback(ctx, &result, nil); err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (s *gradingService) UpdateResultsForExercise(ctx context.Context, exerciseID uint) (int, error) {
	ctx, span := s.tracer.Start(ctx, "grading.update_results")
	span.SetAttributes(attribute.Int64("grading.exercise_id", int64(exerciseID)))
	defer span.End()

	exercise, err := s.exercises.GetWithTestCases(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "exercise_not_found")
			return 0, ErrExerciseNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "exercise_lookup_failed")
		return 0, err
	}

	latest, err := s.results.ListLatestByExercise(ctx, exerciseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_listing_failed")
		return 0, err
	}

	updated := 0
	for i := range latest {
		result := latest[i]
		participation, err := s.participations.GetByID(ctx, result.ParticipationID)
		if err != nil {
			s.logger.Error().Err(err).Uint("participation_id", result.ParticipationID).Msg("skipping rescore, participation lookup failed")
			continue
		}

		manualAssessment := result.IsManual()
		cfg, err := s.scoreConfig(ctx, exercise, manualAssessment)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "score_config_failed")
			return updated, err
		}

		s.locks.Lock(participation.ID)
		outcome := score.Compute(exercise.TestCases, result.Feedbacks, cfg, s.includeAfterDueDate(exercise, participation))
		result.Score = outcome.Score
		result.Successful = outcome.Successful
		result.ResultString = outcome.ResultString
		err = s.results.ReplaceFeedback(ctx, &result, outcome.Feedbacks)
		s.locks.Unlock(participation.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "result_update_failed")
			return updated, err
		}

		if participation.IsStudent() {
			s.cache.StoreLatest(ctx, result)
		}
		updated++
	}

	if err := s.exercises.SetTestCasesChanged(ctx, exerciseID, false); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "changed_flag_reset_failed")
		return updated, err
	}

	s.logger.Info().Uint("exercise_id", exerciseID).Int("updated", updated).Msg("results regraded")
	return updated, nil
}

func (s *gradingService) UpdateSolutionResult(ctx context.Context, exerciseID uint) error {
	ctx, span := s.tracer.Start(ctx, "grading.update_solution_result")
	span.SetAttributes(attribute.Int64("grading.exercise_id", int64(exerciseID)))
	defer span.End()

	exercise, err := s.exercises.GetWithTestCases(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "exercise_not_found")
			return ErrExerciseNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "exercise_lookup_failed")
		return err
	}

	kind := models.ParticipationKindSolution
	solutions, err := s.participations.ListByExercise(ctx, exerciseID, repository.ParticipationFilter{Kind: &kind})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "participation_listing_failed")
		return err
	}
	if len(solutions) == 0 {
		return nil
	}
	participation := solutions[0]

	result, err := s.results.GetLatestForParticipation(ctx, participation.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_lookup_failed")
		return err
	}

	cfg, err := s.scoreConfig(ctx, exercise, result.IsManual())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "score_config_failed")
		return err
	}

	s.locks.Lock(participation.ID)
	outcome := score.Compute(exercise.TestCases, result.Feedbacks, cfg, s.includeAfterDueDate(exercise, participation))
	result.Score = outcome.Score
	result.Successful = outcome.Successful
	result.ResultString = outcome.ResultString
	err = s.results.ReplaceFeedback(ctx, &result, outcome.Feedbacks)
	s.locks.Unlock(participation.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "result_update_failed")
		return err
	}

	s.logger.Info().Uint("exercise_id", exerciseID).Uint("participation_id", participation.ID).Msg("solution result regraded")
	return nil
}

func (s *gradingService) LatestResult(ctx context.Context, participationID uint) (dto.ResultResponse, error) {
	if cached, ok := s.cache.GetLatest(ctx, participationID); ok {
		return cached, nil
	}

	result, err := s.results.GetLatestForParticipation(ctx, participationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResultResponse{}, ErrResultNotFound
		}
		return dto.ResultResponse{}, err
	}

	s.cache.StoreLatest(ctx, result)
	return dto.NewResultResponse(result), nil
}

func (s *gradingService) scoreConfig(ctx context.Context, exercise models.Exercise, manualResult bool) (score.Config, error) {
	cfg := score.Config{
		MaxScore:                     exercise.MaxScore,
		MaxBonusPoints:               exercise.MaxBonusPoints,
		StaticCodeAnalysisEnabled:    exercise.StaticCodeAnalysisEnabled,
		MaxStaticCodeAnalysisPenalty: exercise.MaxStaticCodeAnalysisPenalty,
		ManualResult:                 manualResult,
	}
	if !exercise.StaticCodeAnalysisEnabled {
		return cfg, nil
	}

	categories, err := s.categories.ListByExercise(ctx, exercise.ID)
	if err != nil {
		return score.Config{}, err
	}
	cfg.Categories = make([]score.AnalysisCategory, 0, len(categories))
	for _, category := range categories {
		cfg.Categories = append(cfg.Categories, score.AnalysisCategory{
			Name:       category.Name,
			State:      category.State,
			Penalty:    category.Penalty,
			MaxPenalty: category.MaxPenalty,
		})
	}
	return cfg, nil
}

// includeAfterDueDate reports whether AFTER_DUE_DATE test cases count for this
// participation. Instructor-owned participations always see them; students
// only once their effective due date has passed.
func (s *gradingService) includeAfterDueDate(exercise models.Exercise, participation models.Participation) bool {
	if !participation.IsStudent() {
		return true
	}
	dueDate := participation.EffectiveDueDate(exercise)
	return dueDate == nil || s.now().After(*dueDate)
}

func (s *gradingService) isRated(exercise models.Exercise, participation models.Participation, submission models.Submission) bool {
	if !participation.IsStudent() {
		return true
	}
	dueDate := participation.EffectiveDueDate(exercise)
	return dueDate == nil || !submission.SubmissionDate.After(*dueDate)
}

func feedbackFromNotification(notification connector.BuildNotification) []models.Feedback {
	feedbacks := make([]models.Feedback, 0, len(notification.TestResults)+len(notification.AnalysisIssues))
	for _, test := range notification.TestResults {
		passed := test.Passed
		feedbacks = append(feedbacks, models.Feedback{
			Type:       models.FeedbackAutomatic,
			Text:       test.Name,
			DetailText: test.Message,
			Positive:   &passed,
		})
	}
	for _, issue := range notification.AnalysisIssues {
		negative := false
		feedbacks = append(feedbacks, models.Feedback{
			Type:                       models.FeedbackAutomatic,
			Text:                       models.StaticCodeAnalysisIdentifier + issue.Category,
			DetailText:                 issue.Message,
			Positive:                   &negative,
			StaticCodeAnalysisCategory: issue.Category,
		})
	}
	return feedbacks
}

func duplicateNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	flagged := make(map[string]bool)
	duplicates := make([]string, 0)
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] && !flagged[key] {
			flagged[key] = true
			duplicates = append(duplicates, name)
		}
		seen[key] = true
	}
	return duplicates
}

// filterBuildLogs keeps the lines a student needs to diagnose a compile
// failure and drops CI runner noise.
func filterBuildLogs(lines []string) []string {
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if !strings.Contains(lower, "error") && !strings.Contains(lower, "warning") {
			continue
		}
		filtered = append(filtered, trimmed)
		if len(filtered) == buildLogLimit {
			break
		}
	}
	return filtered
}
