package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/repo"
)

// Service exposes the usage counters. Every call reads or writes the store
// directly; nothing is cached between requests.
type Service struct {
	repo *repo.StatsRepo
}

// NewService constructs a Service with the provided repository.
func NewService(r *repo.StatsRepo) *Service {
	return &Service{repo: r}
}

// Ensure creates the stats table and singleton row. Called once at startup.
func (s *Service) Ensure(ctx context.Context) error {
	if err := s.repo.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure usage_stats table: %w", err)
	}
	if err := s.repo.EnsureRow(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure usage_stats row: %w", err)
	}
	return nil
}

// GetOrCreate returns the singleton stats row, creating it with zero
// counters if absent.
func (s *Service) GetOrCreate(ctx context.Context) (*entity.Stats, error) {
	if err := s.repo.EnsureRow(ctx, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("create stats: %w", err)
	}
	st, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return st, nil
}

// IncrementPageViews records one landing page render.
func (s *Service) IncrementPageViews(ctx context.Context) error {
	if err := s.repo.Increment(ctx, repo.PageViews, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment page views: %w", err)
	}
	return nil
}
