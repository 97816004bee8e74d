package service

import (
	"context"
	"fmt"
	"time"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/internal/util"
	"bimbel_asn_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// QuotaService enforces the per-tier daily session cap. Counters live in
// Redis keyed by user and date; when Redis is down it falls back to counting
// rows so a cache outage never blocks session creation.
type QuotaService struct {
	Redis       *redis.Client
	SessionRepo *repository.SessionRepository
}

func NewQuotaService(rdb *redis.Client, sessionRepo *repository.SessionRepository) *QuotaService {
	return &QuotaService{Redis: rdb, SessionRepo: sessionRepo}
}

func quotaKey(userID uint, day time.Time) string {
	return fmt.Sprintf("quota:sessions:%d:%s", userID, day.Format(util.DateFormat))
}

// CheckDailyLimit returns ErrDailyLimitReached when the user has already
// created today's allowance of sessions. A cap of 0 means unlimited.
func (s *QuotaService) CheckDailyLimit(ctx context.Context, userID uint, tier model.Tier) error {
	limit := util.LimitForTier(tier)
	if limit.MaxSessionsPerDay == 0 {
		return nil
	}

	used, err := s.sessionsToday(ctx, userID)
	if err != nil {
		return err
	}
	if used >= int64(limit.MaxSessionsPerDay) {
		return util.ErrDailyLimitReached
	}
	return nil
}

// RecordSession bumps today's counter. Called after the session transaction
// commits; a Redis failure here only logs, the DB fallback stays accurate.
func (s *QuotaService) RecordSession(ctx context.Context, userID uint) {
	if s.Redis == nil {
		return
	}
	key := quotaKey(userID, time.Now())
	pipe := s.Redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("failed to record session quota", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *QuotaService) sessionsToday(ctx context.Context, userID uint) (int64, error) {
	if s.Redis != nil {
		n, err := s.Redis.Get(ctx, quotaKey(userID, time.Now())).Int64()
		if err == nil {
			return n, nil
		}
		if err == redis.Nil {
			return 0, nil
		}
		logger.Log.Warn("quota counter unavailable, falling back to database", zap.Error(err))
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	return s.SessionRepo.CountCreatedSince(userID, midnight)
}
