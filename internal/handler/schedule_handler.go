package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/internal/service"
	"github.com/noah-isme/gradia-go-api/internal/utils"
)

// ScheduleHandler manages the lifecycle dates of an exercise and exposes the
// pending due-date timers.
type ScheduleHandler struct {
	exercises repository.ExerciseRepository
	schedule  service.ScheduleService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(exercises repository.ExerciseRepository, schedule service.ScheduleService, validator *validator.Validate, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		exercises: exercises,
		schedule:  schedule,
		validator: validator,
		logger:    logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// Register attaches schedule endpoints to the router group.
func (h *ScheduleHandler) Register(router fiber.Router) {
	router.Put("/:exerciseId/schedule", h.update)
	router.Get("/:exerciseId/schedule/tasks", h.pendingTasks)
}

// update replaces the whole schedule of the exercise. Dates left null are
// cleared, and any previously armed timers for them are dropped.
func (h *ScheduleHandler) update(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExerciseScheduleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.DueDate != nil && payload.BuildAndTestAfterDueDate != nil && payload.BuildAndTestAfterDueDate.Before(*payload.DueDate) {
		return utils.SendError(c, fiber.StatusBadRequest, "build and test date must not be before the due date")
	}

	exercise, err := h.exercises.GetByID(c.Context(), exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "exercise not found")
		}
		return h.internalError(c, err)
	}

	exercise.DueDate = payload.DueDate
	exercise.BuildAndTestAfterDueDate = payload.BuildAndTestAfterDueDate
	exercise.ReleaseDate = payload.ReleaseDate

	if err := h.exercises.Update(c.Context(), &exercise); err != nil {
		return h.internalError(c, err)
	}

	if err := h.schedule.ScheduleForExercise(c.Context(), exerciseID); err != nil {
		if errors.Is(err, service.ErrExerciseNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "exercise not found")
		}
		return h.internalError(c, err)
	}

	tasks, err := h.schedule.PendingTasks(c.Context(), exerciseID)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "schedule updated", dto.NewScheduledTaskResponses(tasks))
}

func (h *ScheduleHandler) pendingTasks(c *fiber.Ctx) error {
	exerciseID, err := parseUintParam(c, "exerciseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tasks, err := h.schedule.PendingTasks(c.Context(), exerciseID)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "pending tasks retrieved", dto.NewScheduledTaskResponses(tasks))
}

func (h *ScheduleHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
