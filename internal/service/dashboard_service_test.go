package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/navicf-api/internal/models"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
)

type stubDashboardRepo struct {
	stats      *models.DashboardStats
	err        error
	calls      int
	monthStart time.Time
}

func (s *stubDashboardRepo) Stats(ctx context.Context, monthStart time.Time) (*models.DashboardStats, error) {
	s.calls++
	s.monthStart = monthStart
	if s.err != nil {
		return nil, s.err
	}
	stats := *s.stats
	return &stats, nil
}

// memoryCache is a JSON round-tripping CacheRepository used across tests.
type memoryCache struct {
	items       map[string][]byte
	invalidated []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.items == nil {
		m.items = map[string][]byte{}
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	delete(m.items, pattern)
	return nil
}

func TestDashboardServiceStatsCached(t *testing.T) {
	repo := &stubDashboardRepo{stats: &models.DashboardStats{ActiveStudents: 40, MonthlyEnrollments: 7, ActiveCourses: 5, ActiveModules: 12}}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(repo, cache, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

	stats, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 40, stats.ActiveStudents)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), repo.monthStart)

	stats, hit, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 7, stats.MonthlyEnrollments)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	repo := &stubDashboardRepo{stats: &models.DashboardStats{ActiveCourses: 2}}
	svc := NewDashboardService(repo, nil, 0, nil)

	_, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardServiceError(t *testing.T) {
	svc := NewDashboardService(&stubDashboardRepo{err: errors.New("timeout")}, nil, 0, nil)

	_, _, err := svc.Stats(context.Background())
	assertCode(t, err, appErrors.ErrInternal.Code)
}

func TestStudentWritesInvalidateDashboard(t *testing.T) {
	store := &memoryCache{}
	cache := NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	svc := NewStudentService(&mockStudentRepo{existsByDNI: map[string]string{}}, nil, zap.NewNop(), cache)

	_, err := svc.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{dashboardCacheKey}, store.invalidated)
}

func TestCacheServiceDisabled(t *testing.T) {
	store := &memoryCache{}
	cache := NewCacheService(store, nil, 0, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	var out int
	hit, err := cache.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, store.items)
}
