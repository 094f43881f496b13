package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

type leaderboardRepository interface {
	TopByReputation(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardServiceConfig tunes leaderboard behaviour.
type LeaderboardServiceConfig struct {
	CacheTTL time.Duration
	Limit    int
}

// LeaderboardService serves the reputation ranking, cache-first. Entries go
// stale for at most CacheTTL; ranks are recomputed on every cache refill.
type LeaderboardService struct {
	users  leaderboardRepository
	cache  *CacheService
	logger *zap.Logger
	cfg    LeaderboardServiceConfig
}

// NewLeaderboardService constructs a LeaderboardService with sane defaults.
func NewLeaderboardService(users leaderboardRepository, cache *CacheService, logger *zap.Logger, cfg LeaderboardServiceConfig) *LeaderboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{users: users, cache: cache, logger: logger, cfg: cfg}
}

// Top returns the highest-reputation users and indicates cache utilisation.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error) {
	if limit <= 0 || limit > s.cfg.Limit {
		limit = s.cfg.Limit
	}
	cacheKey := fmt.Sprintf("leaderboard:top:%d", limit)
	if entries, hit, err := s.tryCache(ctx, cacheKey); err != nil {
		return nil, false, err
	} else if hit {
		return entries, true, nil
	}

	entries, err := s.users.TopByReputation(ctx, limit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	s.persistCache(ctx, cacheKey, entries)
	return entries, false, nil
}

// Invalidate drops cached rankings, called after reputation writes.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "leaderboard:*"); err != nil {
		s.logger.Warn("leaderboard invalidation failed", zap.Error(err))
	}
}

func (s *LeaderboardService) tryCache(ctx context.Context, key string) ([]models.LeaderboardEntry, bool, error) {
	if s.cache == nil {
		return nil, false, nil
	}
	var cached []models.LeaderboardEntry
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		return nil, false, err
	}
	if hit {
		return cached, true, nil
	}
	return nil, false, nil
}

func (s *LeaderboardService) persistCache(ctx context.Context, key string, entries []models.LeaderboardEntry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, entries, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("leaderboard cache persist failed", zap.Error(err))
	}
}
