package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradia-go-api/internal/connector"
	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/handler"
	"github.com/noah-isme/gradia-go-api/internal/models"
)

type stubGradingService struct {
	latest dto.ResultResponse
}

func (s stubGradingService) ProcessNewResult(context.Context, connector.BuildNotification) (models.Result, error) {
	return models.Result{}, nil
}

func (s stubGradingService) UpdateResultsForExercise(context.Context, uint) (int, error) {
	return 0, nil
}

func (s stubGradingService) UpdateSolutionResult(context.Context, uint) error {
	return nil
}

func (s stubGradingService) LatestResult(context.Context, uint) (dto.ResultResponse, error) {
	return s.latest, nil
}

type stubSubmissionService struct{}

func (stubSubmissionService) OnPush(context.Context, uint, connector.PushEvent) (models.Submission, error) {
	return models.Submission{}, nil
}

func (stubSubmissionService) OnTestPush(context.Context, uint, string) ([]models.Submission, error) {
	return nil, nil
}

func (stubSubmissionService) TriggerInstructorBuildForExercise(context.Context, uint) error {
	return nil
}

func (stubSubmissionService) LatestPending(context.Context, uint) (models.Submission, bool, error) {
	return models.Submission{}, false, nil
}

func (stubSubmissionService) ListForParticipation(context.Context, uint) ([]models.Submission, error) {
	return nil, nil
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func TestLatestResultContract(t *testing.T) {
	schema := compileSchema(t, "latest_result.schema.json")

	now := time.Now().UTC()
	credits := 50.0
	positive := true
	negative := false
	svc := stubGradingService{latest: dto.ResultResponse{
		ID:              3,
		SubmissionID:    12,
		ParticipationID: 4,
		AssessmentType:  models.AssessmentAutomatic,
		Score:           50,
		Successful:      false,
		ResultString:    "1 of 2 passed",
		Rated:           true,
		CompletionDate:  &now,
		Feedbacks: []dto.FeedbackResponse{
			{Type: models.FeedbackAutomatic, Text: "testSort", Credits: &credits, Positive: &positive, Visibility: models.VisibilityAlways},
			{Type: models.FeedbackAutomatic, Text: "testMerge", DetailText: "assertion failed", Positive: &negative},
		},
	}}

	app := fiber.New()
	handler.NewResultHandler(svc, stubSubmissionService{}, zerolog.Nop()).Register(app.Group("/api/v1/participations"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/participations/4/results/latest", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
