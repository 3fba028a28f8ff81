package domain

import "testing"

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusActive, false},
		{StatusPassed, true},
		{StatusFailed, true},
		{StatusVoided, true},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.want {
			t.Errorf("Terminal(%s) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestTallyResult(t *testing.T) {
	cases := []struct {
		name  string
		tally Tally
		want  Status
	}{
		{"clear majority", Tally{Yes: 5, No: 3, Abstain: 1}, StatusPassed},
		{"clear minority", Tally{Yes: 2, No: 6}, StatusFailed},
		{"tie fails", Tally{Yes: 4, No: 4}, StatusFailed},
		{"abstentions do not count", Tally{Yes: 1, No: 0, Abstain: 10}, StatusPassed},
		{"no votes at all", Tally{}, StatusFailed},
	}
	for _, c := range cases {
		if got := c.tally.Result(); got != c.want {
			t.Errorf("%s: Result() = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestMotionValidate(t *testing.T) {
	m := &Motion{Title: "Adopt the budget", CommitteeID: "c1", AuthorID: "u1", VoteRequired: VoteRequiredMajority}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m.VoteRequired = "supermajority"
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for unknown vote_required")
	}
	m.VoteRequired = VoteRequiredNone
	m.Title = "  "
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for blank title")
	}
}
