package periods

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	byLabel map[string]Period
	nextID  int64
	inserts int
	// raceOnInsert simulates another writer committing the same label first.
	raceOnInsert bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byLabel: make(map[string]Period)}
}

func (r *memoryRepo) FindByLabel(ctx context.Context, label string) (Period, error) {
	p, ok := r.byLabel[label]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (r *memoryRepo) Insert(ctx context.Context, p Period) (Period, error) {
	r.nextID++
	p.ID = r.nextID
	if r.raceOnInsert {
		r.byLabel[p.Label] = p
		return Period{}, ErrPeriodExists
	}
	if _, ok := r.byLabel[p.Label]; ok {
		return Period{}, ErrPeriodExists
	}
	r.inserts++
	r.byLabel[p.Label] = p
	return p, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Period, error) {
	out := make([]Period, 0, len(r.byLabel))
	for _, p := range r.byLabel {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func TestEnsurePeriodIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.EnsurePeriod(ctx, "July 2020")
	require.NoError(t, err)
	second, err := svc.EnsurePeriod(ctx, "july  2020")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, repo.inserts)
	require.Equal(t, "July 2020", second.Label)
}

func TestEnsurePeriodRereadsAfterRace(t *testing.T) {
	repo := newMemoryRepo()
	repo.raceOnInsert = true
	svc := NewService(repo)

	p, err := svc.EnsurePeriod(context.Background(), "March 2021")
	require.NoError(t, err)
	require.Equal(t, "March 2021", p.Label)
	require.NotZero(t, p.ID)
}

func TestEnsurePeriodRejectsBadLabel(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.EnsurePeriod(context.Background(), "Someday 2020")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestListOrdersByCalendar(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	for _, label := range []string{"March 2021", "January 2020", "December 2020"} {
		_, err := svc.EnsurePeriod(ctx, label)
		require.NoError(t, err)
	}
	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "January 2020", items[0].Label)
	require.Equal(t, "March 2021", items[2].Label)
}
