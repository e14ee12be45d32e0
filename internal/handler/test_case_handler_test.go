package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/handler"
	"github.com/noah-isme/gradia-go-api/internal/service"
)

func testCaseApp(testCases *mockTestCaseService, grading *mockGradingService) *fiber.App {
	app := fiber.New()
	h := handler.NewTestCaseHandler(testCases, grading, testValidator(), testLogger())
	h.Register(app.Group("/api/v1/exercises"))
	return app
}

func TestTestCaseHandler_List(t *testing.T) {
	testCases := &mockTestCaseService{testCases: []dto.TestCaseResponse{
		{ID: 1, Name: "testSort", Weight: 1, Active: true, Visibility: "ALWAYS"},
		{ID: 2, Name: "testMerge", Weight: 2, Active: true, Visibility: "AFTER_DUE_DATE"},
	}}
	app := testCaseApp(testCases, &mockGradingService{})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/exercises/7/test-cases", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.TestCaseResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Len(t, body.Data, 2)
	require.Equal(t, "testSort", body.Data[0].Name)
}

func TestTestCaseHandler_ListUnknownExercise(t *testing.T) {
	app := testCaseApp(&mockTestCaseService{err: service.ErrExerciseNotFound}, &mockGradingService{})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/exercises/99/test-cases", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestTestCaseHandler_UpdateWeights(t *testing.T) {
	testCases := &mockTestCaseService{testCases: []dto.TestCaseResponse{{ID: 1, Name: "testSort", Weight: 3}}}
	app := testCaseApp(testCases, &mockGradingService{})

	payload := dto.TestCaseWeightsRequest{Updates: []dto.TestCaseWeightUpdate{{ID: 1, Weight: 3}}}
	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/exercises/7/test-cases", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, testCases.lastBatch.Updates, 1)
}

func TestTestCaseHandler_UpdateWeightsRefreshesSolutionResult(t *testing.T) {
	grading := &mockGradingService{}
	app := testCaseApp(&mockTestCaseService{}, grading)

	payload := dto.TestCaseWeightsRequest{Updates: []dto.TestCaseWeightUpdate{{ID: 1, Weight: 3}}}
	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/exercises/7/test-cases", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []uint{7}, grading.solutionRefresh)
}

func TestTestCaseHandler_UpdateWeightsNoSolutionRefreshOnFailure(t *testing.T) {
	grading := &mockGradingService{}
	app := testCaseApp(&mockTestCaseService{err: service.ErrTestCaseNotFound}, grading)

	payload := dto.TestCaseWeightsRequest{Updates: []dto.TestCaseWeightUpdate{{ID: 9, Weight: 3}}}
	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/exercises/7/test-cases", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Empty(t, grading.solutionRefresh)
}

func TestTestCaseHandler_UpdateWeightsRejectsNegative(t *testing.T) {
	app := testCaseApp(&mockTestCaseService{err: service.ErrNegativeWeight}, &mockGradingService{})

	payload := dto.TestCaseWeightsRequest{Updates: []dto.TestCaseWeightUpdate{{ID: 1, Weight: 2}}}
	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/exercises/7/test-cases", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTestCaseHandler_ResetWeights(t *testing.T) {
	testCases := &mockTestCaseService{}
	app := testCaseApp(testCases, &mockGradingService{})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/exercises/7/test-cases/reset", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []uint{7}, testCases.resets)
}

func TestTestCaseHandler_ResetWeightsRefreshesSolutionResult(t *testing.T) {
	grading := &mockGradingService{}
	app := testCaseApp(&mockTestCaseService{}, grading)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/exercises/7/test-cases/reset", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []uint{7}, grading.solutionRefresh)
}

func TestTestCaseHandler_Rescore(t *testing.T) {
	grading := &mockGradingService{updated: 5}
	app := testCaseApp(&mockTestCaseService{}, grading)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/exercises/7/rescore", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data map[string]int `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 5, body.Data["updated"])
	require.Equal(t, []uint{7}, grading.rescoredFor)
}
