package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
)

const adminStatsCacheKey = "bank:admin:stats"

// AdminService serves read-only aggregates derived from the ledger.
type AdminService struct {
	db       repository.DB
	repos    Repositories
	cache    StatsCache
	cacheTTL time.Duration
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdminService builds the service. cache may be nil; location defaults to time.Local.
func NewAdminService(db repository.DB, repos Repositories, cache StatsCache, cacheTTL time.Duration, location *time.Location, logger *slog.Logger) *AdminService {
	if location == nil {
		location = time.Local
	}
	return &AdminService{
		db:       db,
		repos:    repos,
		cache:    cache,
		cacheTTL: cacheTTL,
		location: location,
		logger:   logger.With("service", "admin"),
		now:      time.Now,
	}
}

// Stats returns the dashboard aggregates. Cache failures fall through to the database.
func (s *AdminService) Stats(ctx context.Context, actor Actor) (*domain.AdminStats, error) {
	if err := Authorize(actor, CapViewAdminStats); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, adminStatsCacheKey)
		if err != nil {
			s.logger.WarnContext(ctx, "Stats cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	stats, err := s.repos.Stats.AdminStats(ctx, s.db, s.startOfToday())
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, adminStatsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "Stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

// ListCustomers lists every non-admin account.
func (s *AdminService) ListCustomers(ctx context.Context, actor Actor) ([]domain.Account, error) {
	if err := Authorize(actor, CapListUsers); err != nil {
		return nil, err
	}
	return s.repos.Accounts.ListCustomers(ctx, s.db)
}

// startOfToday is local midnight in the configured zone.
func (s *AdminService) startOfToday() time.Time {
	now := s.now().In(s.location)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}
