package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
)

// EventService publishes fire-and-forget domain events for external
// notification and websocket collaborators. Delivery failures are logged and
// swallowed; grading never depends on the broker being reachable.
type EventService interface {
	PublishResult(ctx context.Context, result models.Result)
	NotifyTestCasesChanged(ctx context.Context, exerciseID uint)
	NotifyDuplicateTestCases(ctx context.Context, exerciseID uint, names []string)
}

type eventService struct {
	nats        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

type resultEvent struct {
	Result dto.ResultResponse `json:"result"`
	SentAt time.Time          `json:"sent_at"`
}

type testCasesChangedEvent struct {
	ExerciseID uint      `json:"exercise_id"`
	SentAt     time.Time `json:"sent_at"`
}

type duplicateTestCasesEvent struct {
	ExerciseID uint      `json:"exercise_id"`
	Names      []string  `json:"names"`
	SentAt     time.Time `json:"sent_at"`
}

// NewEventService constructs an event publisher. A nil NATS connection yields
// a publisher that only logs, which keeps single-node deployments working
// without a broker.
func NewEventService(natsConn *nats.Conn, subjectBase string, logger zerolog.Logger) EventService {
	if subjectBase == "" {
		subjectBase = "gradia"
	}
	return &eventService{
		nats:        natsConn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "event_service").Logger(),
	}
}

func (s *eventService) PublishResult(ctx context.Context, result models.Result) {
	s.publish(s.subjectBase+".results", resultEvent{
		Result: dto.NewResultResponse(result),
		SentAt: time.Now().UTC(),
	})
}

func (s *eventService) NotifyTestCasesChanged(ctx context.Context, exerciseID uint) {
	s.publish(s.subjectBase+".testcases.changed", testCasesChangedEvent{
		ExerciseID: exerciseID,
		SentAt:     time.Now().UTC(),
	})
}

func (s *eventService) NotifyDuplicateTestCases(ctx context.Context, exerciseID uint, names []string) {
	s.publish(s.subjectBase+".testcases.duplicate", duplicateTestCasesEvent{
		ExerciseID: exerciseID,
		Names:      names,
		SentAt:     time.Now().UTC(),
	})
}

func (s *eventService) publish(subject string, payload interface{}) {
	if s.nats == nil {
		s.logger.Debug().Str("subject", subject).Msg("event broker not configured, skipping publish")
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}
	if err := s.nats.Publish(subject, body); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
