package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
)

type dashboardRepository interface {
	Stats(ctx context.Context, monthStart time.Time) (*models.DashboardStats, error)
}

// DashboardService composes the admin landing page counters.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Stats returns the counters and whether they were served from cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	stats, hit, err := remember(ctx, s.cache, dashboardCacheKey, s.ttl, func(ctx context.Context) (*models.DashboardStats, error) {
		now := s.now().UTC()
		stats, err := s.repo.Stats(ctx, monthStart(now))
		if err != nil {
			return nil, err
		}
		stats.GeneratedAt = now
		return stats, nil
	})
	if err != nil {
		return nil, false, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load dashboard")
	}
	return stats, hit, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
