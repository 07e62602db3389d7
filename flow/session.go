package flow

import (
	"context"
	"sync"
	"time"

	"verification-service/models"
)

// State of a verification session.
type State string

const (
	StateVerifying         State = "verifying"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
	StateTimedOut          State = "timed_out"
	StateInvalidReference  State = "invalid_reference"
	StateNavigated         State = "navigated"
	StateRedirectCancelled State = "redirect_cancelled"
)

// Session is one verification run for one captured reference. All mutable
// state is owned here; the poller and selector never touch it.
type Session struct {
	ID        string
	Reference string

	mu           sync.Mutex
	state        State
	attempt      int
	maxAttempts  int
	nextDelay    time.Duration
	outcome      models.Outcome
	snapshot     *models.TransactionSnapshot
	attemptsUsed int
	destination  *models.RedirectDestination
	countdown    *Countdown
	aborted      bool
	cancel       context.CancelFunc
	createdAt    time.Time
}

// View is the externally visible snapshot of a session, rendered by the
// progress endpoint.
type View struct {
	ID                 string                      `json:"id"`
	Reference          string                      `json:"reference,omitempty"`
	State              State                       `json:"state"`
	Attempt            int                         `json:"attempt"`
	MaxAttempts        int                         `json:"max_attempts"`
	NextDelayMs        int64                       `json:"next_delay_ms,omitempty"`
	Outcome            models.Outcome              `json:"outcome,omitempty"`
	AttemptsUsed       int                         `json:"attempts_used,omitempty"`
	FailureReason      string                      `json:"failure_reason,omitempty"`
	Snapshot           *models.TransactionSnapshot `json:"snapshot,omitempty"`
	Destination        *models.RedirectDestination `json:"destination,omitempty"`
	CountdownRemaining int                         `json:"countdown_remaining,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
}

// View renders the session's current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:           s.ID,
		Reference:    s.Reference,
		State:        s.state,
		Attempt:      s.attempt,
		MaxAttempts:  s.maxAttempts,
		NextDelayMs:  s.nextDelay.Milliseconds(),
		Outcome:      s.outcome,
		AttemptsUsed: s.attemptsUsed,
		Snapshot:     s.snapshot,
		Destination:  s.destination,
		CreatedAt:    s.createdAt,
	}
	if s.snapshot != nil {
		v.FailureReason = s.snapshot.FailureReason
	}
	if s.countdown != nil {
		v.CountdownRemaining = s.countdown.Remaining()
	}
	return v
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setProgress records a poll attempt. No-op after abort.
func (s *Session) setProgress(attempt, maxAttempts int, nextDelay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.attempt = attempt
	s.maxAttempts = maxAttempts
	s.nextDelay = nextDelay
}

// complete applies a terminal transition and, when a destination countdown is
// wanted, starts it. Returns false if the session was aborted first.
func (s *Session) complete(state State, outcome models.Outcome, snapshot *models.TransactionSnapshot,
	attemptsUsed int, destination *models.RedirectDestination, countdownSeconds int, onExpire func()) bool {

	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return false
	}
	// Entering a terminal state replaces any prior countdown so two can
	// never run concurrently.
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	s.state = state
	s.outcome = outcome
	s.snapshot = snapshot
	s.attemptsUsed = attemptsUsed
	s.destination = destination
	if destination != nil && countdownSeconds > 0 {
		s.countdown = StartCountdown(countdownSeconds, onExpire)
	}
	s.mu.Unlock()
	return true
}

// autoNavigate is the countdown expiry transition.
func (s *Session) autoNavigate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted || s.state == StateNavigated || s.state == StateRedirectCancelled {
		return
	}
	s.state = StateNavigated
}

// CancelRedirect stops a pending auto-redirect. Idempotent: cancelling after
// navigation, or with no countdown running, does nothing.
func (s *Session) CancelRedirect() {
	s.mu.Lock()
	countdown := s.countdown
	s.mu.Unlock()

	if countdown == nil || !countdown.Stop() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted || s.state == StateNavigated {
		return
	}
	s.state = StateRedirectCancelled
}

// Navigate records a user-initiated navigation. Any pending auto-redirect is
// cancelled first so the two cannot race. Returns the destination, or nil if
// the session has none.
func (s *Session) Navigate() *models.RedirectDestination {
	s.mu.Lock()
	countdown := s.countdown
	s.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted || s.destination == nil {
		return s.destination
	}
	s.state = StateNavigated
	return s.destination
}

// Abort tears the session down: the polling loop's next resumption no-ops,
// no further state is written, and any countdown is cleared.
func (s *Session) Abort() {
	s.mu.Lock()
	s.aborted = true
	countdown := s.countdown
	cancel := s.cancel
	s.countdown = nil
	s.mu.Unlock()

	if countdown != nil {
		countdown.Stop()
	}
	if cancel != nil {
		cancel()
	}
}
