package activation

import "testing"

func TestMachine_MatchOnThirdObservation(t *testing.T) {
	m := NewMachine("org_b", 20)

	if got := m.Observe("org_a"); got != StatePolling {
		t.Errorf("state after first mismatch = %v, want polling", got)
	}
	if got := m.Observe("org_a"); got != StatePolling {
		t.Errorf("state after second mismatch = %v, want polling", got)
	}
	if got := m.Observe("org_b"); got != StateActivated {
		t.Errorf("state after match = %v, want activated", got)
	}
	if m.Attempts() != 3 {
		t.Errorf("Attempts = %d, want 3", m.Attempts())
	}
	if m.LastClaim() != "org_b" {
		t.Errorf("LastClaim = %q, want %q", m.LastClaim(), "org_b")
	}
}

func TestMachine_ImmediateMatch(t *testing.T) {
	m := NewMachine("org_b", 20)
	if got := m.Observe("org_b"); got != StateActivated {
		t.Errorf("state = %v, want activated", got)
	}
	if m.Attempts() != 1 {
		t.Errorf("Attempts = %d, want 1", m.Attempts())
	}
}

func TestMachine_BudgetExhaustion(t *testing.T) {
	m := NewMachine("org_b", 5)

	for i := 0; i < 4; i++ {
		if got := m.Observe("org_a"); got != StatePolling {
			t.Fatalf("state after observation %d = %v, want polling", i+1, got)
		}
	}
	if got := m.Observe("org_a"); got != StateActivatedUnverified {
		t.Errorf("state at budget = %v, want activated_unverified", got)
	}
	if m.Attempts() != 5 {
		t.Errorf("Attempts = %d, want exactly the budget of 5", m.Attempts())
	}
	if m.LastClaim() != "org_a" {
		t.Errorf("LastClaim = %q, want %q", m.LastClaim(), "org_a")
	}
}

func TestMachine_MatchOnLastAttemptWins(t *testing.T) {
	// A match on the final budgeted attempt is a verified activation, not an
	// exhaustion.
	m := NewMachine("org_b", 3)
	m.Observe("org_a")
	m.Observe("org_a")
	if got := m.Observe("org_b"); got != StateActivated {
		t.Errorf("state = %v, want activated", got)
	}
}

func TestMachine_EmptyClaimCountsAsAttempt(t *testing.T) {
	m := NewMachine("org_b", 2)
	m.Observe("")
	if m.Attempts() != 1 {
		t.Errorf("Attempts = %d, want 1", m.Attempts())
	}
	if got := m.Observe(""); got != StateActivatedUnverified {
		t.Errorf("state = %v, want activated_unverified", got)
	}
}

func TestMachine_EmptyDesiredNeverMatchesEmptyClaim(t *testing.T) {
	m := NewMachine("", 2)
	if got := m.Observe(""); got == StateActivated {
		t.Error("empty claim must not verify an empty desired org")
	}
}

func TestMachine_TerminalStatesAbsorb(t *testing.T) {
	m := NewMachine("org_b", 20)
	m.Observe("org_b")

	if got := m.Observe("org_a"); got != StateActivated {
		t.Errorf("state after post-terminal observation = %v, want activated", got)
	}
	if m.Attempts() != 1 {
		t.Errorf("Attempts = %d, want 1 (terminal state must not count observations)", m.Attempts())
	}
	if m.LastClaim() != "org_b" {
		t.Errorf("LastClaim = %q, want %q", m.LastClaim(), "org_b")
	}
}

func TestNewMachine_NonPositiveBudgetFallsBack(t *testing.T) {
	m := NewMachine("org_b", 0)
	for i := 0; i < DefaultMaxAttempts-1; i++ {
		if got := m.Observe("org_a"); got != StatePolling {
			t.Fatalf("state after observation %d = %v, want polling", i+1, got)
		}
	}
	if got := m.Observe("org_a"); got != StateActivatedUnverified {
		t.Errorf("state = %v, want activated_unverified at default budget", got)
	}
}

func TestState_String(t *testing.T) {
	testCases := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StatePolling, "polling"},
		{StateActivated, "activated"},
		{StateActivatedUnverified, "activated_unverified"},
		{State(99), "unknown"},
	}
	for _, tc := range testCases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
