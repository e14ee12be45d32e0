package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/models"
)

// ResultCacheService keeps the latest reconciled result per participation in
// Redis so UI polling does not hit the database. The cache is advisory: a miss
// or an unreachable Redis falls through to the repository.
type ResultCacheService interface {
	GetLatest(ctx context.Context, participationID uint) (dto.ResultResponse, bool)
	StoreLatest(ctx context.Context, result models.Result)
	Invalidate(ctx context.Context, participationID uint)
}

type resultCacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewResultCacheService constructs the latest-result cache. A nil client
// disables caching.
func NewResultCacheService(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) ResultCacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &resultCacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With().Str("component", "result_cache_service").Logger(),
	}
}

func cacheKey(participationID uint) string {
	return fmt.Sprintf("gradia:latest-result:%d", participationID)
}

func (s *resultCacheService) GetLatest(ctx context.Context, participationID uint) (dto.ResultResponse, bool) {
	if s.redis == nil {
		return dto.ResultResponse{}, false
	}

	raw, err := s.redis.Get(ctx, cacheKey(participationID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Uint("participation_id", participationID).Msg("result cache read failed")
		}
		return dto.ResultResponse{}, false
	}

	var cached dto.ResultResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn().Err(err).Uint("participation_id", participationID).Msg("result cache entry corrupt, dropping")
		s.Invalidate(ctx, participationID)
		return dto.ResultResponse{}, false
	}
	return cached, true
}

func (s *resultCacheService) StoreLatest(ctx context.Context, result models.Result) {
	if s.redis == nil {
		return
	}

	body, err := json.Marshal(dto.NewResultResponse(result))
	if err != nil {
		s.logger.Error().Err(err).Uint("result_id", result.ID).Msg("failed to encode result for cache")
		return
	}
	if err := s.redis.Set(ctx, cacheKey(result.ParticipationID), body, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("participation_id", result.ParticipationID).Msg("result cache write failed")
	}
}

func (s *resultCacheService) Invalidate(ctx context.Context, participationID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(participationID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("participation_id", participationID).Msg("result cache invalidation failed")
	}
}
