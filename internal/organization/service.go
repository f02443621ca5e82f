// Package organization manages branches and events.
package organization

import (
	"context"
	"strings"

	"github.com/mwanzo/sacco/internal/ledger"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	CreateBranch(ctx context.Context, b Branch) (Branch, error)
	UpdateBranch(ctx context.Context, b Branch) (Branch, error)
	GetBranch(ctx context.Context, id int64) (Branch, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	DeleteBranch(ctx context.Context, id int64) error
	CreateEvent(ctx context.Context, e Event) (Event, error)
	UpdateEvent(ctx context.Context, e Event) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Service coordinates branch and event management.
type Service struct {
	repo  RepositoryPort
	clock ledger.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, clock ledger.Clock) *Service {
	if clock == nil {
		clock = ledger.SystemClock
	}
	return &Service{repo: repo, clock: clock}
}

func (s *Service) CreateBranch(ctx context.Context, input BranchInput) (Branch, error) {
	b := branchFrom(input)
	b.CreatedAt = s.clock()
	return s.repo.CreateBranch(ctx, b)
}

func (s *Service) UpdateBranch(ctx context.Context, id int64, input BranchInput) (Branch, error) {
	b := branchFrom(input)
	b.ID = id
	b.LastUpdated = s.clock()
	return s.repo.UpdateBranch(ctx, b)
}

func (s *Service) GetBranch(ctx context.Context, id int64) (Branch, error) {
	return s.repo.GetBranch(ctx, id)
}

func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) DeleteBranch(ctx context.Context, id int64) error {
	return s.repo.DeleteBranch(ctx, id)
}

func (s *Service) CreateEvent(ctx context.Context, input EventInput) (Event, error) {
	return s.repo.CreateEvent(ctx, Event{Description: strings.TrimSpace(input.Description), CreatedAt: s.clock()})
}

func (s *Service) UpdateEvent(ctx context.Context, id int64, input EventInput) (Event, error) {
	return s.repo.UpdateEvent(ctx, Event{ID: id, Description: strings.TrimSpace(input.Description), LastUpdated: s.clock()})
}

func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	return s.repo.DeleteEvent(ctx, id)
}

func branchFrom(input BranchInput) Branch {
	return Branch{
		Town:            strings.TrimSpace(input.Town),
		LocationAddress: strings.TrimSpace(input.LocationAddress),
		Phone:           strings.TrimSpace(input.Phone),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
	}
}
