package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubExerciseRepo struct {
	mu        sync.Mutex
	exercises map[uint]models.Exercise
	testCases map[uint][]models.TestCase
}

func newStubExerciseRepo(exercises ...models.Exercise) *stubExerciseRepo {
	repo := &stubExerciseRepo{
		exercises: make(map[uint]models.Exercise),
		testCases: make(map[uint][]models.TestCase),
	}
	for _, exercise := range exercises {
		repo.exercises[exercise.ID] = exercise
	}
	return repo
}

func (r *stubExerciseRepo) GetByID(ctx context.Context, id uint) (models.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exercise, ok := r.exercises[id]
	if !ok {
		return models.Exercise{}, gorm.ErrRecordNotFound
	}
	return exercise, nil
}

func (r *stubExerciseRepo) GetWithTestCases(ctx context.Context, id uint) (models.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exercise, ok := r.exercises[id]
	if !ok {
		return models.Exercise{}, gorm.ErrRecordNotFound
	}
	exercise.TestCases = append([]models.TestCase(nil), r.testCases[id]...)
	return exercise, nil
}

func (r *stubExerciseRepo) Update(ctx context.Context, exercise *models.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exercises[exercise.ID] = *exercise
	return nil
}

func (r *stubExerciseRepo) SetTestCasesChanged(ctx context.Context, id uint, changed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exercise, ok := r.exercises[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	exercise.TestCasesChanged = changed
	r.exercises[id] = exercise
	return nil
}

func (r *stubExerciseRepo) BumpScheduleGeneration(ctx context.Context, id uint) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exercise, ok := r.exercises[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	exercise.ScheduleGeneration++
	r.exercises[id] = exercise
	return exercise.ScheduleGeneration, nil
}

func (r *stubExerciseRepo) setTestCases(exerciseID uint, testCases []models.TestCase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.testCases[exerciseID] = testCases
}

type stubTestCaseRepo struct {
	mu    sync.Mutex
	next  uint
	cases map[uint]models.TestCase
}

func newStubTestCaseRepo(testCases ...models.TestCase) *stubTestCaseRepo {
	repo := &stubTestCaseRepo{cases: make(map[uint]models.TestCase), next: 1}
	for _, testCase := range testCases {
		if testCase.ID == 0 {
			testCase.ID = repo.next
		}
		if testCase.ID >= repo.next {
			repo.next = testCase.ID + 1
		}
		repo.cases[testCase.ID] = testCase
	}
	return repo
}

func (r *stubTestCaseRepo) ListByExercise(ctx context.Context, exerciseID uint) ([]models.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listed := make([]models.TestCase, 0)
	for _, testCase := range r.cases {
		if testCase.ExerciseID == exerciseID {
			listed = append(listed, testCase)
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].ID < listed[j].ID })
	return listed, nil
}

func (r *stubTestCaseRepo) ListActiveByExercise(ctx context.Context, exerciseID uint) ([]models.TestCase, error) {
	all, _ := r.ListByExercise(ctx, exerciseID)
	active := make([]models.TestCase, 0, len(all))
	for _, testCase := range all {
		if testCase.Active {
			active = append(active, testCase)
		}
	}
	return active, nil
}

func (r *stubTestCaseRepo) GetByID(ctx context.Context, id uint) (models.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	testCase, ok := r.cases[id]
	if !ok {
		return models.TestCase{}, gorm.ErrRecordNotFound
	}
	return testCase, nil
}

func (r *stubTestCaseRepo) Create(ctx context.Context, testCase *models.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	testCase.ID = r.next
	r.next++
	r.cases[testCase.ID] = *testCase
	return nil
}

func (r *stubTestCaseRepo) Save(ctx context.Context, testCase *models.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases[testCase.ID] = *testCase
	return nil
}

func (r *stubTestCaseRepo) SaveAll(ctx context.Context, testCases []models.TestCase) error {
	for i := range testCases {
		if err := r.Save(ctx, &testCases[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubTestCaseRepo) findByName(exerciseID uint, name string) (models.TestCase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, testCase := range r.cases {
		if testCase.ExerciseID == exerciseID && strings.EqualFold(testCase.Name, name) {
			return testCase, true
		}
	}
	return models.TestCase{}, false
}

type stubParticipationRepo struct {
	mu             sync.Mutex
	participations map[uint]models.Participation
}

func newStubParticipationRepo(participations ...models.Participation) *stubParticipationRepo {
	repo := &stubParticipationRepo{participations: make(map[uint]models.Participation)}
	for _, participation := range participations {
		repo.participations[participation.ID] = participation
	}
	return repo
}

func (r *stubParticipationRepo) GetByID(ctx context.Context, id uint) (models.Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	participation, ok := r.participations[id]
	if !ok {
		return models.Participation{}, gorm.ErrRecordNotFound
	}
	return participation, nil
}

func (r *stubParticipationRepo) GetByBuildPlanKey(ctx context.Context, planKey string) (models.Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, participation := range r.participations {
		if participation.BuildPlanKey == planKey {
			return participation, nil
		}
	}
	return models.Participation{}, gorm.ErrRecordNotFound
}

func (r *stubParticipationRepo) GetByExerciseAndKind(ctx context.Context, exerciseID uint, kind string) (models.Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, participation := range r.participations {
		if participation.ExerciseID == exerciseID && participation.Kind == kind {
			return participation, nil
		}
	}
	return models.Participation{}, gorm.ErrRecordNotFound
}

func (r *stubParticipationRepo) ListByExercise(ctx context.Context, exerciseID uint, filter repository.ParticipationFilter) ([]models.Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listed := make([]models.Participation, 0)
	for _, participation := range r.participations {
		if participation.ExerciseID != exerciseID {
			continue
		}
		if filter.Kind != nil && participation.Kind != *filter.Kind {
			continue
		}
		if filter.WithoutIndividualDueDate && participation.IndividualDueDate != nil {
			continue
		}
		listed = append(listed, participation)
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].ID < listed[j].ID })
	return listed, nil
}

func (r *stubParticipationRepo) SetLocked(ctx context.Context, id uint, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	participation, ok := r.participations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	participation.Locked = locked
	r.participations[id] = participation
	return nil
}

type stubSubmissionRepo struct {
	mu          sync.Mutex
	next        uint
	submissions map[uint]models.Submission
	results     *stubResultRepo
	createCalls int
}

func newStubSubmissionRepo() *stubSubmissionRepo {
	return &stubSubmissionRepo{next: 1, submissions: make(map[uint]models.Submission)}
}

func (r *stubSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission.ID = r.next
	r.next++
	r.submissions[submission.ID] = *submission
	r.createCalls++
	return nil
}

func (r *stubSubmissionRepo) Save(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *stubSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *stubSubmissionRepo) FindByParticipationAndCommit(ctx context.Context, participationID uint, commitHash string) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Submission
	for id := range r.submissions {
		submission := r.submissions[id]
		if submission.ParticipationID != participationID || submission.CommitHash != commitHash {
			continue
		}
		if found == nil || submission.ID > found.ID {
			copied := submission
			found = &copied
		}
	}
	if found == nil {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	r.attachResult(found)
	return *found, nil
}

func (r *stubSubmissionRepo) FindLatestPending(ctx context.Context, participationID uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Submission
	for id := range r.submissions {
		submission := r.submissions[id]
		if submission.ParticipationID != participationID || !submission.Submitted {
			continue
		}
		if r.results != nil && r.results.hasResultFor(submission.ID) {
			continue
		}
		if found == nil || submission.ID > found.ID {
			copied := submission
			found = &copied
		}
	}
	if found == nil {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return *found, nil
}

func (r *stubSubmissionRepo) ListByParticipation(ctx context.Context, participationID uint) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listed := make([]models.Submission, 0)
	for _, submission := range r.submissions {
		if submission.ParticipationID == participationID {
			listed = append(listed, submission)
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].ID > listed[j].ID })
	return listed, nil
}

func (r *stubSubmissionRepo) attachResult(submission *models.Submission) {
	if r.results == nil {
		return
	}
	if result, ok := r.results.resultFor(submission.ID); ok {
		submission.Result = &result
	}
}

type stubResultRepo struct {
	mu           sync.Mutex
	next         uint
	results      map[uint]models.Result
	replaceCalls int
}

func newStubResultRepo() *stubResultRepo {
	return &stubResultRepo{next: 1, results: make(map[uint]models.Result)}
}

func (r *stubResultRepo) Create(ctx context.Context, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.ID = r.next
	r.next++
	r.results[result.ID] = *result
	return nil
}

func (r *stubResultRepo) Save(ctx context.Context, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.ID] = *result
	return nil
}

func (r *stubResultRepo) GetByID(ctx context.Context, id uint) (models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[id]
	if !ok {
		return models.Result{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (r *stubResultRepo) GetBySubmission(ctx context.Context, submissionID uint) (models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, result := range r.results {
		if result.SubmissionID == submissionID {
			return result, nil
		}
	}
	return models.Result{}, gorm.ErrRecordNotFound
}

func (r *stubResultRepo) GetLatestForParticipation(ctx context.Context, participationID uint) (models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Result
	for id := range r.results {
		result := r.results[id]
		if result.ParticipationID != participationID {
			continue
		}
		if found == nil || result.ID > found.ID {
			copied := result
			found = &copied
		}
	}
	if found == nil {
		return models.Result{}, gorm.ErrRecordNotFound
	}
	return *found, nil
}

func (r *stubResultRepo) ListLatestByExercise(ctx context.Context, exerciseID uint) ([]models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[uint]models.Result)
	for _, result := range r.results {
		current, ok := latest[result.ParticipationID]
		if !ok || result.ID > current.ID {
			latest[result.ParticipationID] = result
		}
	}
	listed := make([]models.Result, 0, len(latest))
	for _, result := range latest {
		listed = append(listed, result)
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].ID < listed[j].ID })
	return listed, nil
}

func (r *stubResultRepo) ReplaceFeedback(ctx context.Context, result *models.Result, feedbacks []models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if result.ID == 0 {
		result.ID = r.next
		r.next++
	}
	for i := range feedbacks {
		feedbacks[i].ResultID = result.ID
		feedbacks[i].Ordinal = i
	}
	result.Feedbacks = feedbacks
	r.results[result.ID] = *result
	r.replaceCalls++
	return nil
}

func (r *stubResultRepo) hasResultFor(submissionID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, result := range r.results {
		if result.SubmissionID == submissionID {
			return true
		}
	}
	return false
}

func (r *stubResultRepo) resultFor(submissionID uint) (models.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, result := range r.results {
		if result.SubmissionID == submissionID {
			return result, true
		}
	}
	return models.Result{}, false
}

type stubScheduledTaskRepo struct {
	mu    sync.Mutex
	next  uint
	tasks map[uint]models.ScheduledTask
}

func newStubScheduledTaskRepo() *stubScheduledTaskRepo {
	return &stubScheduledTaskRepo{next: 1, tasks: make(map[uint]models.ScheduledTask)}
}

func (r *stubScheduledTaskRepo) Replace(ctx context.Context, exerciseID uint, tasks []models.ScheduledTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, task := range r.tasks {
		if task.ExerciseID == exerciseID && task.FiredAt == nil {
			delete(r.tasks, id)
		}
	}
	for i := range tasks {
		tasks[i].ID = r.next
		r.next++
		r.tasks[tasks[i].ID] = tasks[i]
	}
	return nil
}

func (r *stubScheduledTaskRepo) ListPending(ctx context.Context) ([]models.ScheduledTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listed := make([]models.ScheduledTask, 0)
	for _, task := range r.tasks {
		if task.FiredAt == nil {
			listed = append(listed, task)
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].FireAt.Before(listed[j].FireAt) })
	return listed, nil
}

func (r *stubScheduledTaskRepo) ListPendingForExercise(ctx context.Context, exerciseID uint) ([]models.ScheduledTask, error) {
	all, _ := r.ListPending(ctx)
	listed := make([]models.ScheduledTask, 0, len(all))
	for _, task := range all {
		if task.ExerciseID == exerciseID {
			listed = append(listed, task)
		}
	}
	return listed, nil
}

func (r *stubScheduledTaskRepo) MarkFired(ctx context.Context, id uint, firedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	task.FiredAt = &firedAt
	r.tasks[id] = task
	return nil
}

func (r *stubScheduledTaskRepo) DeleteForExercise(ctx context.Context, exerciseID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, task := range r.tasks {
		if task.ExerciseID == exerciseID && task.FiredAt == nil {
			delete(r.tasks, id)
		}
	}
	return nil
}

type stubAnalysisCategoryRepo struct {
	categories []models.AnalysisCategory
}

func (r *stubAnalysisCategoryRepo) ListByExercise(ctx context.Context, exerciseID uint) ([]models.AnalysisCategory, error) {
	listed := make([]models.AnalysisCategory, 0, len(r.categories))
	for _, category := range r.categories {
		if category.ExerciseID == exerciseID {
			listed = append(listed, category)
		}
	}
	return listed, nil
}

func (r *stubAnalysisCategoryRepo) Save(ctx context.Context, category *models.AnalysisCategory) error {
	r.categories = append(r.categories, *category)
	return nil
}

type stubVersionControl struct {
	heads map[string]string
}

func (v *stubVersionControl) LastCommitHash(ctx context.Context, repositorySlug string) (string, error) {
	return v.heads[repositorySlug], nil
}

type stubContinuousIntegration struct {
	mu        sync.Mutex
	triggered []string
}

func (c *stubContinuousIntegration) TriggerBuild(ctx context.Context, buildPlanKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggered = append(c.triggered, buildPlanKey)
	return nil
}

func (c *stubContinuousIntegration) CopyBuildPlan(ctx context.Context, sourceKey, targetKey string) error {
	return nil
}

func (c *stubContinuousIntegration) DeleteBuildPlan(ctx context.Context, buildPlanKey string) error {
	return nil
}

func (c *stubContinuousIntegration) triggeredPlans() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.triggered...)
}

type stubRepositoryAccess struct {
	mu       sync.Mutex
	readOnly []string
	unlocked []string
	combined []string
}

func (a *stubRepositoryAccess) SetPermissionsToReadOnly(ctx context.Context, repositorySlug string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.readOnly = append(a.readOnly, repositorySlug)
	return nil
}

func (a *stubRepositoryAccess) Unlock(ctx context.Context, repositorySlug string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unlocked = append(a.unlocked, repositorySlug)
	return nil
}

func (a *stubRepositoryAccess) CombineTemplateCommits(ctx context.Context, repositorySlug string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.combined = append(a.combined, repositorySlug)
	return nil
}

func (a *stubRepositoryAccess) lockedRepos() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.readOnly...)
}
