package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/turklawai/auth-service/internal/domain"
	"github.com/turklawai/auth-service/internal/persistence"
	"github.com/turklawai/auth-service/internal/repository"
	"github.com/turklawai/auth-service/pkg/util"
)

const quotaKeyPrefix = "quota:"

// QuotaService tracks per-user request consumption against the plan limit.
// Redis serves the hot counter when reachable; the users table keeps the
// durable copy and is the fallback.
type QuotaService struct {
	users  repository.UserRepository
	redis  *persistence.Redis
	logger *zap.Logger
}

// NewQuotaService builds the service. redis may be nil or unreachable; the
// store-backed path then applies.
func NewQuotaService(users repository.UserRepository, redis *persistence.Redis, logger *zap.Logger) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaService{users: users, redis: redis, logger: logger}
}

// Usage reports current consumption for the user.
type Usage struct {
	Used      int `json:"requests_used"`
	Limit     int `json:"requests_limit"`
	Remaining int `json:"requests_remaining"`
}

// Consume records one request for the user and fails with QUOTA_EXCEEDED
// once the plan limit is reached.
func (s *QuotaService) Consume(ctx context.Context, userID string) (*Usage, error) {
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	used := user.RequestsUsed + 1
	if s.redis.Available() {
		if n, err := s.increment(ctx, userID, user.RequestsUsed); err == nil {
			used = n
		} else {
			s.logger.Warn("redis quota counter unavailable", zap.Error(err))
		}
	}

	if used > user.RequestsLimit {
		return nil, util.NewQuotaExceeded()
	}

	// Write-through so the store survives a Redis flush.
	if err := s.users.UpdateUsage(ctx, userID, used); err != nil {
		s.logger.Warn("usage write-through failed", zap.String("user_id", userID), zap.Error(err))
	}

	return &Usage{Used: used, Limit: user.RequestsLimit, Remaining: user.RequestsLimit - used}, nil
}

// Remaining reports consumption without recording a request.
func (s *QuotaService) Remaining(ctx context.Context, userID string) (*Usage, error) {
	user, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	used := user.RequestsUsed
	if s.redis.Available() {
		if val, err := s.redis.Client.Get(ctx, quotaKeyPrefix+userID).Int(); err == nil {
			used = val
		}
	}

	remaining := user.RequestsLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return &Usage{Used: used, Limit: user.RequestsLimit, Remaining: remaining}, nil
}

// Reset zeroes the counter, typically after a plan change.
func (s *QuotaService) Reset(ctx context.Context, userID string) error {
	if s.redis.Available() {
		if err := s.redis.Client.Del(ctx, quotaKeyPrefix+userID).Err(); err != nil {
			s.logger.Warn("redis quota reset failed", zap.Error(err))
		}
	}
	if err := s.users.UpdateUsage(ctx, userID, 0); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("user")
		}
		return util.NewStoreError(err)
	}
	return nil
}

func (s *QuotaService) fetch(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("user")
		}
		return nil, util.NewStoreError(err)
	}
	return user, nil
}

// increment seeds the Redis counter from the durable count on first use,
// then atomically increments it.
func (s *QuotaService) increment(ctx context.Context, userID string, seed int) (int, error) {
	key := quotaKeyPrefix + userID
	if err := s.redis.Client.SetNX(ctx, key, seed, 0).Err(); err != nil {
		return 0, err
	}
	n, err := s.redis.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
