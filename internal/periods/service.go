package periods

import (
	"context"
	"errors"
)

// Service exposes the period calendar.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsurePeriod returns the period for label, creating it when absent. It never
// fails because the period already exists.
func (s *Service) EnsurePeriod(ctx context.Context, label string) (Period, error) {
	return Ensure(ctx, s.repo, label)
}

// List returns all registered periods in calendar order.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// Ensure is EnsurePeriod against an explicit repository. Callers pass a
// pool-backed repository: a transaction could not see the row of a
// concurrent inserter it lost to.
func Ensure(ctx context.Context, repo Repository, label string) (Period, error) {
	parsed, err := Parse(Normalize(label))
	if err != nil {
		return Period{}, err
	}
	existing, err := repo.FindByLabel(ctx, parsed.Label)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPeriodNotFound) {
		return Period{}, err
	}
	created, err := repo.Insert(ctx, parsed)
	if errors.Is(err, ErrPeriodExists) {
		return repo.FindByLabel(ctx, parsed.Label)
	}
	return created, err
}
