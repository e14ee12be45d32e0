package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradia-go-api/internal/connector"
	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

type mockSubmissionService struct {
	submission     models.Submission
	submissions    []models.Submission
	err            error
	lastPush       connector.PushEvent
	triggeredFor   []uint
	testPushCommit string
}

func (m *mockSubmissionService) OnPush(_ context.Context, _ uint, push connector.PushEvent) (models.Submission, error) {
	m.lastPush = push
	if m.err != nil {
		return models.Submission{}, m.err
	}
	return m.submission, nil
}

func (m *mockSubmissionService) OnTestPush(_ context.Context, _ uint, commitHash string) ([]models.Submission, error) {
	m.testPushCommit = commitHash
	if m.err != nil {
		return nil, m.err
	}
	return m.submissions, nil
}

func (m *mockSubmissionService) TriggerInstructorBuildForExercise(_ context.Context, exerciseID uint) error {
	m.triggeredFor = append(m.triggeredFor, exerciseID)
	return m.err
}

func (m *mockSubmissionService) LatestPending(_ context.Context, _ uint) (models.Submission, bool, error) {
	if m.err != nil {
		return models.Submission{}, false, m.err
	}
	return m.submission, m.submission.ID != 0, nil
}

func (m *mockSubmissionService) ListForParticipation(_ context.Context, _ uint) ([]models.Submission, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.submissions, nil
}

type mockGradingService struct {
	result           models.Result
	latest           dto.ResultResponse
	updated          int
	err              error
	lastNotification connector.BuildNotification
	rescoredFor      []uint
	solutionRefresh  []uint
	solutionErr      error
}

func (m *mockGradingService) ProcessNewResult(_ context.Context, notification connector.BuildNotification) (models.Result, error) {
	m.lastNotification = notification
	if m.err != nil {
		return models.Result{}, m.err
	}
	return m.result, nil
}

func (m *mockGradingService) UpdateResultsForExercise(_ context.Context, exerciseID uint) (int, error) {
	m.rescoredFor = append(m.rescoredFor, exerciseID)
	if m.err != nil {
		return 0, m.err
	}
	return m.updated, nil
}

func (m *mockGradingService) UpdateSolutionResult(_ context.Context, exerciseID uint) error {
	m.solutionRefresh = append(m.solutionRefresh, exerciseID)
	return m.solutionErr
}

func (m *mockGradingService) LatestResult(_ context.Context, _ uint) (dto.ResultResponse, error) {
	if m.err != nil {
		return dto.ResultResponse{}, m.err
	}
	return m.latest, nil
}

type mockTestCaseService struct {
	testCases []dto.TestCaseResponse
	err       error
	lastBatch dto.TestCaseWeightsRequest
	resets    []uint
}

func (m *mockTestCaseService) List(_ context.Context, _ uint) ([]dto.TestCaseResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.testCases, nil
}

func (m *mockTestCaseService) Reconcile(_ context.Context, _ uint, _ []string) (bool, error) {
	return false, m.err
}

func (m *mockTestCaseService) UpdateWeights(_ context.Context, _ uint, payload dto.TestCaseWeightsRequest) ([]dto.TestCaseResponse, error) {
	m.lastBatch = payload
	if m.err != nil {
		return nil, m.err
	}
	return m.testCases, nil
}

func (m *mockTestCaseService) ResetWeights(_ context.Context, exerciseID uint) ([]dto.TestCaseResponse, error) {
	m.resets = append(m.resets, exerciseID)
	if m.err != nil {
		return nil, m.err
	}
	return m.testCases, nil
}

type mockScheduleService struct {
	tasks        []models.ScheduledTask
	err          error
	scheduledFor []uint
}

func (m *mockScheduleService) ScheduleForExercise(_ context.Context, exerciseID uint) error {
	m.scheduledFor = append(m.scheduledFor, exerciseID)
	return m.err
}

func (m *mockScheduleService) RecoverPendingTasks(_ context.Context) error {
	return m.err
}

func (m *mockScheduleService) PendingTasks(_ context.Context, _ uint) ([]models.ScheduledTask, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tasks, nil
}

func (m *mockScheduleService) Stop() {}
