package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/service"
	"github.com/noah-isme/gradia-go-api/internal/utils"
)

// ResultHandler serves the graded results and submission history of a participation.
type ResultHandler struct {
	grading     service.GradingService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewResultHandler constructs the handler.
func NewResultHandler(grading service.GradingService, submissions service.SubmissionService, logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		grading:     grading,
		submissions: submissions,
		logger:      logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register attaches result endpoints to the router group.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("/:participationId/results/latest", h.latestResult)
	router.Get("/:participationId/submissions", h.listSubmissions)
}

func (h *ResultHandler) latestResult(c *fiber.Ctx) error {
	participationID, err := parseUintParam(c, "participationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.grading.LatestResult(c.Context(), participationID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "result not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "result retrieved", result)
}

func (h *ResultHandler) listSubmissions(c *fiber.Ctx) error {
	participationID, err := parseUintParam(c, "participationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.submissions.ListForParticipation(c.Context(), participationID)
	if err != nil {
		if errors.Is(err, service.ErrParticipationNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "participation not found")
		}
		return h.internalError(c, err)
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission))
	}

	return utils.SendSuccess(c, "submissions retrieved", responses)
}

func (h *ResultHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
