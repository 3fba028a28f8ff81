package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	committeedomain "commie/backend/internal/committee/domain"
	"commie/backend/internal/eligibility/engine"
	"commie/backend/internal/motion/domain"
	"commie/backend/internal/motion/service"
	"commie/backend/internal/server/middleware"
	userdomain "commie/backend/internal/user/domain"
)

type memCommittees struct {
	mu         sync.Mutex
	committees map[string]*committeedomain.Committee
	members    map[string]*committeedomain.Member
}

func newMemCommittees() *memCommittees {
	return &memCommittees{
		committees: make(map[string]*committeedomain.Committee),
		members:    make(map[string]*committeedomain.Member),
	}
}

func (m *memCommittees) GetByID(_ context.Context, id string) (*committeedomain.Committee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.committees[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCommittees) ListByOrg(context.Context, string) ([]*committeedomain.Committee, error) {
	return nil, nil
}

func (m *memCommittees) Create(_ context.Context, c *committeedomain.Committee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.committees[c.ID] = &cp
	return nil
}

func (m *memCommittees) Update(_ context.Context, c *committeedomain.Committee) error {
	return m.Create(context.Background(), c)
}

func (m *memCommittees) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.committees, id)
	return nil
}

func (m *memCommittees) GetMember(_ context.Context, committeeID, userID string) (*committeedomain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[committeeID+"/"+userID]
	if !ok {
		return nil, nil
	}
	cp := *mem
	return &cp, nil
}

func (m *memCommittees) ListMembers(context.Context, string) ([]*committeedomain.Member, error) {
	return nil, nil
}

func (m *memCommittees) UpsertMember(_ context.Context, mem *committeedomain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mem
	m.members[mem.CommitteeID+"/"+mem.UserID] = &cp
	return nil
}

func (m *memCommittees) RemoveMember(context.Context, string, string) error { return nil }

func (m *memCommittees) CreateAccessRequest(context.Context, *committeedomain.AccessRequest) error {
	return nil
}

func (m *memCommittees) GetAccessRequest(context.Context, string) (*committeedomain.AccessRequest, error) {
	return nil, nil
}

func (m *memCommittees) ListAccessRequests(context.Context, string, committeedomain.AccessRequestStatus) ([]*committeedomain.AccessRequest, error) {
	return nil, nil
}

func (m *memCommittees) DecideAccessRequest(context.Context, string, committeedomain.AccessRequestStatus) error {
	return nil
}

type memMotions struct {
	mu      sync.Mutex
	motions map[string]*domain.Motion
	tally   domain.Tally
}

func newMemMotions(tally domain.Tally) *memMotions {
	return &memMotions{motions: make(map[string]*domain.Motion), tally: tally}
}

func (m *memMotions) GetByID(_ context.Context, id string) (*domain.Motion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[id]
	if !ok {
		return nil, nil
	}
	cp := *mo
	return &cp, nil
}

func (m *memMotions) Create(_ context.Context, mo *domain.Motion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mo
	m.motions[mo.ID] = &cp
	return nil
}

func (m *memMotions) Update(_ context.Context, mo *domain.Motion) error {
	return m.Create(context.Background(), mo)
}

func (m *memMotions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.motions, id)
	return nil
}

func (m *memMotions) ListByCommittee(_ context.Context, committeeID string, statuses []domain.Status, _, _ int) ([]*domain.Motion, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Motion
	for _, mo := range m.motions {
		if mo.CommitteeID != committeeID {
			continue
		}
		if len(statuses) > 0 {
			keep := false
			for _, s := range statuses {
				if mo.Status == s {
					keep = true
				}
			}
			if !keep {
				continue
			}
		}
		cp := *mo
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memMotions) ListSubsidiaries(_ context.Context, motionID string) ([]*domain.Motion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Motion
	for _, mo := range m.motions {
		if mo.TargetMotionID == motionID {
			cp := *mo
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memMotions) ListExpiredOpen(context.Context, time.Time) ([]*domain.Motion, error) {
	return nil, nil
}

func (m *memMotions) Second(_ context.Context, motionID, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[motionID]
	if !ok || mo.Status != domain.StatusActive || mo.SecondedBy != "" {
		return false, nil
	}
	mo.SecondedBy = userID
	return true, nil
}

func (m *memMotions) OpenVoting(_ context.Context, motionID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[motionID]
	if !ok || mo.VotingStatus != domain.VotingPending {
		return false, nil
	}
	mo.VotingStatus = domain.VotingOpen
	mo.VotingOpenedAt = &at
	return true, nil
}

func (m *memMotions) Close(_ context.Context, motionID string, status domain.Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[motionID]
	if !ok || mo.Status != domain.StatusActive || mo.VotingStatus != domain.VotingOpen {
		return false, nil
	}
	mo.Status = status
	mo.VotingStatus = domain.VotingClosed
	mo.VotingClosedAt = &at
	return true, nil
}

func (m *memMotions) Void(_ context.Context, motionID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.motions[motionID]
	if !ok || mo.Status != domain.StatusActive {
		return false, nil
	}
	mo.Status = domain.StatusVoided
	return true, nil
}

func (m *memMotions) Tally(context.Context, string) (domain.Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tally, nil
}

type passEvaluator struct{}

func (passEvaluator) Evaluate(context.Context, *committeedomain.Committee, *domain.Motion) (engine.Result, error) {
	return engine.Result{Eligible: true}, nil
}

type fixture struct {
	committees *memCommittees
	motions    *memMotions
	router     http.Handler
}

// newFixture wires the handler into a chi router with a test identity
// middleware that reads the user from the X-Test-User header.
func newFixture(t *testing.T, tally domain.Tally, users map[string]*userdomain.User) *fixture {
	t.Helper()
	committees := newMemCommittees()
	motions := newMemMotions(tally)
	svc := service.NewService(motions, motions, nil, passEvaluator{}, nil, nil)
	h := New(svc, motions, committees)

	identity := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				if u, ok := users[id]; ok {
					r = r.WithContext(middleware.WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewRouter()
	r.Use(identity)
	r.Route("/committee/{committeeID}", h.Mount)
	r.Route("/motion-control/{committeeID}/{motionID}", h.MountControl)
	return &fixture{committees: committees, motions: motions, router: r}
}

func (f *fixture) seedCommittee(t *testing.T, visibility committeedomain.Visibility, requireSecond bool) *committeedomain.Committee {
	t.Helper()
	c := &committeedomain.Committee{
		ID:         "committee-1",
		OrgID:      "org-1",
		Title:      "Budget Committee",
		OwnerID:    "owner",
		ChairID:    "chair",
		Visibility: visibility,
		Settings: committeedomain.Settings{
			RequireSecond:    requireSecond,
			AllowAbstentions: true,
			EnforcementLevel: committeedomain.EnforcementStrict,
		},
	}
	if err := f.committees.Create(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	for userID, role := range map[string]committeedomain.Role{
		"owner":  committeedomain.RoleOwner,
		"chair":  committeedomain.RoleChair,
		"member": committeedomain.RoleMember,
		"second": committeedomain.RoleMember,
	} {
		m := &committeedomain.Member{ID: userID, CommitteeID: c.ID, UserID: userID, Role: role}
		if err := f.committees.UpsertMember(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func testUsers() map[string]*userdomain.User {
	out := make(map[string]*userdomain.User)
	for _, id := range []string{"owner", "chair", "member", "second", "outsider"} {
		out[id] = &userdomain.User{ID: id, Subject: "auth0|" + id, Email: id + "@example.com", OrganizationID: "org-2"}
	}
	return out
}

func (f *fixture) do(t *testing.T, method, path, asUser string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if asUser != "" {
		req.Header.Set("X-Test-User", asUser)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestCreateMotionEndpoint(t *testing.T) {
	f := newFixture(t, domain.Tally{}, testUsers())
	f.seedCommittee(t, committeedomain.VisibilityPrivate, false)

	rec := f.do(t, http.MethodPost, "/committee/committee-1/motion/create", "member",
		map[string]any{"title": "Adopt the budget"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["votingStatus"] != "open" {
		t.Fatalf("voting should open immediately, got %v", data["votingStatus"])
	}
}

func TestAnonymousReadVisibility(t *testing.T) {
	f := newFixture(t, domain.Tally{}, testUsers())
	f.seedCommittee(t, committeedomain.VisibilityPublic, false)
	now := time.Now().UTC()
	motion := &domain.Motion{
		ID: "m1", CommitteeID: "committee-1", Title: "Adopt", AuthorID: "member",
		Status: domain.StatusActive, VoteRequired: domain.VoteRequiredMajority,
		VotingStatus: domain.VotingOpen, VotingOpenedAt: &now,
	}
	if err := f.motions.Create(context.Background(), motion); err != nil {
		t.Fatal(err)
	}

	// Public committee: anonymous read succeeds.
	rec := f.do(t, http.MethodGet, "/committee/committee-1/motion/m1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public read status = %d", rec.Code)
	}

	// Private committee: hidden from anonymous callers.
	c, err := f.committees.GetByID(context.Background(), "committee-1")
	if err != nil {
		t.Fatal(err)
	}
	c.Visibility = committeedomain.VisibilityPrivate
	if err := f.committees.Update(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	rec = f.do(t, http.MethodGet, "/committee/committee-1/motion/m1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("private read status = %d, want 404", rec.Code)
	}
}

func TestMotionControlFlow(t *testing.T) {
	f := newFixture(t, domain.Tally{Yes: 2, No: 1}, testUsers())
	f.seedCommittee(t, committeedomain.VisibilityPrivate, true)

	rec := f.do(t, http.MethodPost, "/committee/committee-1/motion/create", "member",
		map[string]any{"title": "Adopt the budget"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	motionID, _ := decodeData(t, rec)["id"].(string)
	if motionID == "" {
		t.Fatal("no motion id in response")
	}
	control := "/motion-control/committee-1/" + motionID

	// The author cannot second their own motion.
	rec = f.do(t, http.MethodPost, control+"/second", "member", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self-second status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, control+"/second", "second", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second status = %d, body %s", rec.Code, rec.Body.String())
	}
	if data := decodeData(t, rec); data["votingStatus"] != "open" {
		t.Fatalf("seconding should open voting, got %v", data["votingStatus"])
	}

	// Members cannot close voting.
	rec = f.do(t, http.MethodPost, control+"/close-voting", "member", nil)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "FORBIDDEN" {
		t.Fatalf("member close status = %d code %s", rec.Code, errorCode(t, rec))
	}

	rec = f.do(t, http.MethodPost, control+"/close-voting", "chair", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d, body %s", rec.Code, rec.Body.String())
	}
	if data := decodeData(t, rec); data["status"] != "passed" {
		t.Fatalf("2 yes / 1 no should pass, got %v", data["status"])
	}

	// Re-close is an invalid-state conflict.
	rec = f.do(t, http.MethodPost, control+"/close-voting", "chair", nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "INVALID_STATE" {
		t.Fatalf("re-close status = %d code %s", rec.Code, errorCode(t, rec))
	}
}

func TestVotingEligibilityEndpoint(t *testing.T) {
	f := newFixture(t, domain.Tally{}, testUsers())
	f.seedCommittee(t, committeedomain.VisibilityPublic, false)
	procedural := &domain.Motion{
		ID: "p1", CommitteeID: "committee-1", Title: "Note", AuthorID: "member",
		Status: domain.StatusActive, VoteRequired: domain.VoteRequiredNone,
		VotingStatus: domain.VotingPending,
	}
	if err := f.motions.Create(context.Background(), procedural); err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, http.MethodGet, "/motion-control/committee-1/p1/voting-eligibility", "member", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if data := decodeData(t, rec); data["applicable"] != false {
		t.Fatalf("procedural motion should not be applicable, got %v", data["applicable"])
	}
}
