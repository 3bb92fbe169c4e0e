package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type dashboardReportRepository interface {
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
	Recent(ctx context.Context, limit int) ([]models.Report, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// dashboardMetrics counts cache hits and misses on the overview.
type dashboardMetrics interface {
	RecordCacheLookup(hit bool)
}

const dashboardCacheKey = "dashboard:overview"

// DashboardOverview aggregates the portal's landing statistics.
type DashboardOverview struct {
	TotalReports int                              `json:"total_reports"`
	ByStatus     map[models.ReportStatus]int      `json:"by_status"`
	ByCategory   map[models.ReportCategory]int    `json:"by_category"`
	Recent       []models.Report                  `json:"recent"`
	GeneratedAt  time.Time                        `json:"generated_at"`
}

// DashboardService serves the aggregated report statistics behind a single
// Redis-backed cache. Every view reads through here; report mutations
// invalidate the cache instead of each screen refetching on its own.
type DashboardService struct {
	reports dashboardReportRepository
	cache   dashboardCache
	metrics dashboardMetrics
	ttl     time.Duration
	logger  *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(reports dashboardReportRepository, cache dashboardCache, metrics dashboardMetrics, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{reports: reports, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Overview returns the cached aggregation, rebuilding it on miss.
func (s *DashboardService) Overview(ctx context.Context) (*DashboardOverview, error) {
	if s.cache != nil {
		var cached DashboardOverview
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(true)
			}
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		// A read failure rebuilds just like a miss.
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(false)
		}
	}

	overview, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, overview, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return overview, nil
}

// InvalidateReports drops cached aggregates after any report mutation.
func (s *DashboardService) InvalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*DashboardOverview, error) {
	statusCounts, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to aggregate report statuses")
	}
	categoryCounts, err := s.reports.CountByCategory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to aggregate report categories")
	}
	recent, err := s.reports.Recent(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load recent reports")
	}

	overview := &DashboardOverview{
		ByStatus:    make(map[models.ReportStatus]int, len(statusCounts)),
		ByCategory:  make(map[models.ReportCategory]int, len(categoryCounts)),
		Recent:      recent,
		GeneratedAt: time.Now().UTC(),
	}
	for _, sc := range statusCounts {
		overview.ByStatus[sc.Status] = sc.Count
		overview.TotalReports += sc.Count
	}
	for _, cc := range categoryCounts {
		overview.ByCategory[cc.Category] = cc.Count
	}
	return overview, nil
}
