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

// WebhookHandler receives the normalized VCS push and CI build-result
// notifications. Both endpoints are idempotent so connectors may redeliver.
type WebhookHandler struct {
	submissions service.SubmissionService
	grading     service.GradingService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(submissions service.SubmissionService, grading service.GradingService, validator *validator.Validate, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		submissions: submissions,
		grading:     grading,
		validator:   validator,
		logger:      logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// Register attaches webhook endpoints to the router group.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/push/:participationId", h.push)
	router.Post("/test-push/:exerciseId", h.testPush)
	router.Post("/build-result/:planKey", h.buildResult)
}

func (h *WebhookHandler) push(c *fiber.Ctx) error {
	participationID, err := parseUintParam(c, "participationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PushWebhookRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	submission, err := h.submissions.OnPush(c.Context(), participationID, payload.ToPushEvent(participationID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSetupCommitIgnored):
			return utils.SendSuccess(c, "setup commit ignored", nil)
		case errors.Is(err, service.ErrWrongBranch):
			return utils.SendSuccess(c, "branch ignored", nil)
		default:
			return h.handleError(c, err)
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission recorded", dto.NewSubmissionResponse(submission))
}

func (h *WebhookHandler) testPush(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PushWebhookRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	submissions, err := h.submissions.OnTestPush(c.Context(), exerciseID, payload.CommitHash)
	if err != nil {
		return h.handleError(c, err)
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission))
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "test submissions recorded", responses)
}

func (h *WebhookHandler) buildResult(c *fiber.Ctx) error {
	planKey := c.Params("planKey")
	if planKey == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid plan key")
	}

	var payload dto.BuildResultWebhookRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	result, err := h.grading.ProcessNewResult(c.Context(), payload.ToNotification(planKey))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "result processed", dto.NewResultResponse(result))
}

func (h *WebhookHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrParticipationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "participation not found")
	case errors.Is(err, service.ErrExerciseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exercise not found")
	case errors.Is(err, service.ErrUnknownBuildPlan):
		return utils.SendError(c, fiber.StatusNotFound, "unknown build plan key")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *WebhookHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
