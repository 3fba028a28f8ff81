package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	committeedomain "commie/backend/internal/committee/domain"
	commentdomain "commie/backend/internal/comment/domain"
	motiondomain "commie/backend/internal/motion/domain"
	motionservice "commie/backend/internal/motion/service"
)

// memStore backs both the expired listing and the lifecycle transitions.
type memStore struct {
	mu        sync.Mutex
	motions   map[string]*motiondomain.Motion
	committee *committeedomain.Committee
	tally     motiondomain.Tally
}

func newMemStore(committee *committeedomain.Committee, tally motiondomain.Tally) *memStore {
	return &memStore{motions: make(map[string]*motiondomain.Motion), committee: committee, tally: tally}
}

func (m *memStore) GetByID(_ context.Context, id string) (*motiondomain.Motion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[id]
	if !ok {
		return nil, nil
	}
	cp := *mo
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, mo *motiondomain.Motion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mo
	m.motions[mo.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, mo *motiondomain.Motion) error {
	return m.Create(context.Background(), mo)
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.motions, id)
	return nil
}

func (m *memStore) ListByCommittee(context.Context, string, []motiondomain.Status, int, int) ([]*motiondomain.Motion, int, error) {
	return nil, 0, nil
}

func (m *memStore) ListSubsidiaries(context.Context, string) ([]*motiondomain.Motion, error) {
	return nil, nil
}

func (m *memStore) Second(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}

func (m *memStore) OpenVoting(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (m *memStore) Close(_ context.Context, motionID string, status motiondomain.Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[motionID]
	if !ok || mo.Status != motiondomain.StatusActive || mo.VotingStatus != motiondomain.VotingOpen {
		return false, nil
	}
	mo.Status = status
	mo.VotingStatus = motiondomain.VotingClosed
	mo.VotingClosedAt = &at
	return true, nil
}

func (m *memStore) Void(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

// ListExpiredOpen applies the same deadline rule as the SQL query.
func (m *memStore) ListExpiredOpen(_ context.Context, now time.Time) ([]*motiondomain.Motion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	days := m.committee.Settings.VotingPeriodDays
	if !m.committee.Settings.AutoArchive || days <= 0 {
		return nil, nil
	}
	var out []*motiondomain.Motion
	for _, mo := range m.motions {
		if mo.Status != motiondomain.StatusActive || mo.VotingStatus != motiondomain.VotingOpen || mo.VotingOpenedAt == nil {
			continue
		}
		if mo.VotingOpenedAt.AddDate(0, 0, days).Before(now) {
			cp := *mo
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) Tally(context.Context, string) (motiondomain.Tally, error) {
	return m.tally, nil
}

func (m *memStore) CommitteeByID(_ context.Context, id string) (*committeedomain.Committee, error) {
	if id == m.committee.ID {
		return m.committee, nil
	}
	return nil, nil
}

type committeeGetter struct{ store *memStore }

func (g committeeGetter) GetByID(ctx context.Context, id string) (*committeedomain.Committee, error) {
	return g.store.CommitteeByID(ctx, id)
}

type discardComments struct{}

func (discardComments) Create(context.Context, *commentdomain.Comment) error { return nil }

func openMotion(id string, openedAt time.Time) *motiondomain.Motion {
	return &motiondomain.Motion{
		ID:             id,
		CommitteeID:    "committee-1",
		Title:          "Motion " + id,
		AuthorID:       "author",
		Status:         motiondomain.StatusActive,
		VoteRequired:   motiondomain.VoteRequiredMajority,
		VotingStatus:   motiondomain.VotingOpen,
		VotingOpenedAt: &openedAt,
	}
}

func TestSweepClosesOnlyExpiredMotions(t *testing.T) {
	committee := &committeedomain.Committee{
		ID:    "committee-1",
		OrgID: "org-1",
		Settings: committeedomain.Settings{
			VotingPeriodDays: 7,
			AutoArchive:      true,
			EnforcementLevel: committeedomain.EnforcementStrict,
		},
	}
	store := newMemStore(committee, motiondomain.Tally{Yes: 2, No: 1})
	lifecycle := motionservice.NewService(store, store, discardComments{}, nil, nil, nil)

	now := time.Now().UTC()
	stale := openMotion("stale", now.AddDate(0, 0, -10))
	fresh := openMotion("fresh", now.AddDate(0, 0, -2))
	if err := store.Create(context.Background(), stale); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(context.Background(), fresh); err != nil {
		t.Fatal(err)
	}

	s := New(store, committeeGetter{store}, lifecycle, time.Minute)
	closed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}

	got, err := store.GetByID(context.Background(), "stale")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != motiondomain.StatusPassed || got.VotingStatus != motiondomain.VotingClosed {
		t.Fatalf("stale motion not settled: %s/%s", got.Status, got.VotingStatus)
	}

	got, err = store.GetByID(context.Background(), "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if got.VotingStatus != motiondomain.VotingOpen {
		t.Fatalf("fresh motion should stay open, got %s", got.VotingStatus)
	}
}

func TestSweepHonorsAutoArchiveOff(t *testing.T) {
	committee := &committeedomain.Committee{
		ID:    "committee-1",
		OrgID: "org-1",
		Settings: committeedomain.Settings{
			VotingPeriodDays: 7,
			AutoArchive:      false,
			EnforcementLevel: committeedomain.EnforcementStrict,
		},
	}
	store := newMemStore(committee, motiondomain.Tally{})
	lifecycle := motionservice.NewService(store, store, discardComments{}, nil, nil, nil)

	stale := openMotion("stale", time.Now().UTC().AddDate(0, 0, -30))
	if err := store.Create(context.Background(), stale); err != nil {
		t.Fatal(err)
	}

	s := New(store, committeeGetter{store}, lifecycle, time.Minute)
	closed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if closed != 0 {
		t.Fatalf("closed = %d, want 0", closed)
	}
}
