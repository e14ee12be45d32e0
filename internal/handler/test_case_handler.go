package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/service"
	"github.com/noah-isme/gradia-go-api/internal/utils"
)

// TestCaseHandler exposes the per-exercise grading configuration.
type TestCaseHandler struct {
	testCases service.TestCaseService
	grading   service.GradingService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTestCaseHandler constructs the handler.
func NewTestCaseHandler(testCases service.TestCaseService, grading service.GradingService, validator *validator.Validate, logger zerolog.Logger) *TestCaseHandler {
	return &TestCaseHandler{
		testCases: testCases,
		grading:   grading,
		validator: validator,
		logger:    logger.With().Str("component", "test_case_handler").Logger(),
	}
}

// Register attaches test case endpoints to the router group.
func (h *TestCaseHandler) Register(router fiber.Router) {
	router.Get("/:exerciseId/test-cases", h.list)
	router.Patch("/:exerciseId/test-cases", h.updateWeights)
	router.Post("/:exerciseId/test-cases/reset", h.resetWeights)
	router.Post("/:exerciseId/rescore", h.rescore)
}

func (h *TestCaseHandler) list(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	testCases, err := h.testCases.List(c.Context(), exerciseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "test cases retrieved", testCases)
}

func (h *TestCaseHandler) updateWeights(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TestCaseWeightsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	testCases, err := h.testCases.UpdateWeights(c.Context(), exerciseID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	h.refreshSolutionResult(c, exerciseID)
	return utils.SendSuccess(c, "test case weights updated", testCases)
}

func (h *TestCaseHandler) resetWeights(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	testCases, err := h.testCases.ResetWeights(c.Context(), exerciseID)
	if err != nil {
		return h.handleError(c, err)
	}

	h.refreshSolutionResult(c, exerciseID)
	return utils.SendSuccess(c, "test case weights reset", testCases)
}

// refreshSolutionResult regrades the solution result so instructors see the
// effect of a weight change right away. Student results stay untouched until
// an explicit rescore.
func (h *TestCaseHandler) refreshSolutionResult(c *fiber.Ctx, exerciseID uint) {
	if err := h.grading.UpdateSolutionResult(c.Context(), exerciseID); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("exercise_id", exerciseID).Msg("solution result refresh failed")
	}
}

func (h *TestCaseHandler) rescore(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	updated, err := h.grading.UpdateResultsForExercise(c.Context(), exerciseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "results updated", fiber.Map{"updated": updated})
}

func (h *TestCaseHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrExerciseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exercise not found")
	case errors.Is(err, service.ErrTestCaseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "test case not found for exercise")
	case errors.Is(err, service.ErrNegativeWeight):
		return utils.SendError(c, fiber.StatusBadRequest, "test case weight must not be negative")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *TestCaseHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
