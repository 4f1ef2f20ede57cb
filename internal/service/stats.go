package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andalan-erp/loan-ledger/internal/domain"
	"github.com/andalan-erp/loan-ledger/pkg/apperrors"
)

// GetStats returns the organization's portfolio KPIs. Results are cached
// in Redis for a short TTL; the cache is best-effort and every failure
// falls back to the store.
func (s *LoanService) GetStats(ctx context.Context, orgID uuid.UUID) (*domain.LoanStats, error) {
	key := statsCacheKey(orgID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var stats domain.LoanStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("stats cache read failed", "org", orgID.String(), "error", err)
		}
	}

	stats, err := s.loanRepo.Stats(ctx, orgID, time.Now())
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cfg.Ledger.StatsCacheTTL).Err(); err != nil {
				s.logger.Warn("stats cache write failed", "org", orgID.String(), "error", err)
			}
		}
	}

	return stats, nil
}
