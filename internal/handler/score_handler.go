package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/score"
	"github.com/noah-isme/gradia-go-api/internal/utils"
)

// ScoreHandler computes what-if scores for instructor UIs. Nothing is stored;
// the computation runs on the weights given in the request.
type ScoreHandler struct {
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(validator *validator.Validate, logger zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{
		validator: validator,
		logger:    logger.With().Str("component", "score_handler").Logger(),
	}
}

// Register attaches score endpoints to the router group.
func (h *ScoreHandler) Register(router fiber.Router) {
	router.Post("/preview", h.preview)
}

func (h *ScoreHandler) preview(c *fiber.Ctx) error {
	var payload dto.ScorePreviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
		}
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	testCases := make([]models.TestCase, 0, len(payload.TestCases))
	feedbacks := make([]models.Feedback, 0, len(payload.TestCases))
	for _, preview := range payload.TestCases {
		visibility := preview.Visibility
		if visibility == "" {
			visibility = models.VisibilityAlways
		}
		multiplier := preview.BonusMultiplier
		if multiplier == 0 {
			multiplier = 1
		}
		testCases = append(testCases, models.TestCase{
			Name:            preview.Name,
			Weight:          preview.Weight,
			BonusMultiplier: multiplier,
			BonusPoints:     preview.BonusPoints,
			Active:          true,
			Visibility:      visibility,
		})
		passed := preview.Passed
		feedbacks = append(feedbacks, models.Feedback{
			Type:     models.FeedbackAutomatic,
			Text:     preview.Name,
			Positive: &passed,
		})
	}

	outcome := score.Compute(testCases, feedbacks, score.Config{
		MaxScore:       payload.MaxScore,
		MaxBonusPoints: payload.MaxBonusPoints,
	}, payload.IncludeAfterDueDate)

	return utils.SendSuccess(c, "score computed", dto.ScorePreviewResponse{
		Score:        outcome.Score,
		ResultString: outcome.ResultString,
		Successful:   outcome.Successful,
	})
}
