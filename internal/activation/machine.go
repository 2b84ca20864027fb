// Package activation implements the tenant activation handshake: after a
// tenant switch, it waits for the provider's freshly issued tokens to carry
// the desired org claim. The decision logic lives in a pure state machine so
// tests can drive it with synthetic claim sequences and no timers.
package activation

// State is the activation state machine's state.
type State int

const (
	// StateIdle is the initial state; no claim has been observed.
	StateIdle State = iota
	// StatePolling means at least one observed claim did not match and the
	// attempt budget is not exhausted.
	StatePolling
	// StateActivated means an observed claim matched the desired tenant.
	StateActivated
	// StateActivatedUnverified means the attempt budget ran out without a
	// matching claim. The tenant is still treated as activated: availability
	// over strict consistency, the UI must not hang on claim propagation.
	StateActivatedUnverified
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateActivated:
		return "activated"
	case StateActivatedUnverified:
		return "activated_unverified"
	}
	return "unknown"
}

// Machine tracks attempts and last-seen claim for one activation. It performs
// no I/O and holds no timers; the caller feeds it one decoded org claim per
// token fetch.
type Machine struct {
	desired     string
	maxAttempts int
	state       State
	attempts    int
	lastClaim   string
}

// NewMachine returns a Machine for the desired org id with the given attempt
// budget. maxAttempts <= 0 falls back to DefaultMaxAttempts.
func NewMachine(desired string, maxAttempts int) *Machine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Machine{desired: desired, maxAttempts: maxAttempts, state: StateIdle}
}

// Observe consumes the org claim decoded from one token fetch and returns the
// resulting state. A fetch that yielded no decodable claim is observed as "".
// Terminal states absorb further observations.
func (m *Machine) Observe(claim string) State {
	if m.Terminal() {
		return m.state
	}
	m.attempts++
	m.lastClaim = claim
	if claim != "" && claim == m.desired {
		m.state = StateActivated
		return m.state
	}
	if m.attempts >= m.maxAttempts {
		m.state = StateActivatedUnverified
		return m.state
	}
	m.state = StatePolling
	return m.state
}

// Terminal reports whether the machine reached a terminal state. There is no
// terminal failure state; the loop always converges to an activated state.
func (m *Machine) Terminal() bool {
	return m.state == StateActivated || m.state == StateActivatedUnverified
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Attempts returns the number of observations consumed.
func (m *Machine) Attempts() int { return m.attempts }

// LastClaim returns the most recently observed claim, for diagnostics.
func (m *Machine) LastClaim() string { return m.lastClaim }

// Desired returns the org id the machine is converging toward.
func (m *Machine) Desired() string { return m.desired }
