package flow

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"verification-service/logging"
	"verification-service/models"
	"verification-service/monitoring"
	"verification-service/redirect"
	"verification-service/store"
	"verification-service/verification"
)

// OutcomeStore remembers terminal outcomes across sessions.
type OutcomeStore interface {
	Get(ctx context.Context, reference string) (*store.OutcomeRecord, error)
	Set(ctx context.Context, reference string, record store.OutcomeRecord) error
}

// OutcomePublisher emits an event when a session reaches a terminal outcome.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, event models.VerificationEvent) error
}

// Controller drives verification sessions: it captures the reference, runs
// the poller, hands terminal results to the redirect selector and owns the
// auto-redirect countdowns. One session per captured reference.
type Controller struct {
	poller    *verification.Poller
	cache     OutcomeStore     // optional
	publisher OutcomePublisher // optional

	sessions *sessionRegistry
}

// NewController creates a controller. cache and publisher may be nil.
func NewController(poller *verification.Poller, cache OutcomeStore, publisher OutcomePublisher) *Controller {
	return &Controller{
		poller:    poller,
		cache:     cache,
		publisher: publisher,
		sessions:  newSessionRegistry(),
	}
}

// Start captures a reference from the landing URL's query parameters and
// begins verifying it in the background. When no usable reference is present
// the returned session is already terminal in the invalid_reference state and
// no polling happens.
func (c *Controller) Start(query url.Values) *Session {
	session := &Session{
		ID:          uuid.New().String(),
		state:       StateVerifying,
		maxAttempts: c.poller.MaxAttempts(),
		createdAt:   time.Now().UTC(),
	}

	reference := ExtractReference(query)
	if reference == "" {
		session.state = StateInvalidReference
		c.sessions.put(session)
		logging.Warn("Verification landing had no usable reference", zap.String("session_id", session.ID))
		return session
	}

	session.Reference = reference
	ctx, cancel := context.WithCancel(context.Background())
	session.cancel = cancel
	c.sessions.put(session)

	go c.run(ctx, session)

	return session
}

// Session returns a session by id.
func (c *Controller) Session(id string) (*Session, bool) {
	return c.sessions.get(id)
}

// Abort tears down a session and forgets it. The polling loop, if still
// running, no-ops on its next resumption.
func (c *Controller) Abort(id string) bool {
	session, ok := c.sessions.get(id)
	if !ok {
		return false
	}
	session.Abort()
	c.sessions.remove(id)
	return true
}

// CheckOnce performs a single manual re-check for a reference, for the
// timed-out screen's "check again" action.
func (c *Controller) CheckOnce(ctx context.Context, reference string) verification.Result {
	result := c.poller.VerifyOnce(ctx, reference)
	if result.Outcome.Terminal() {
		c.remember(ctx, reference, result)
	}
	return result
}

func (c *Controller) run(ctx context.Context, s *Session) {
	// A reference already observed terminal never re-enters the loop.
	if record := c.recall(ctx, s.Reference); record != nil {
		c.applyTerminal(ctx, s, verification.Result{
			Snapshot:     record.Snapshot,
			Outcome:      record.Outcome,
			AttemptsUsed: record.AttemptsUsed,
		}, true)
		return
	}

	result := c.poller.Verify(ctx, s.Reference, s.setProgress)

	if result.Outcome.Terminal() {
		c.applyTerminal(ctx, s, result, false)
		return
	}

	// Attempt budget exhausted while still pending, or the session was
	// aborted mid-wait. Either way this is "still processing", never a
	// definitive failure, and no redirect is scheduled.
	if s.complete(StateTimedOut, models.OutcomePending, result.Snapshot, result.AttemptsUsed, nil, 0, nil) {
		logging.Warn("Verification timed out while still pending",
			zap.String("session_id", s.ID),
			zap.String("reference", s.Reference),
			zap.Int("attempts_used", result.AttemptsUsed),
			zap.Error(result.Err),
		)
		c.recordTerminal(ctx, models.OutcomePending, result.AttemptsUsed, nil)
	}
}

func (c *Controller) applyTerminal(ctx context.Context, s *Session, result verification.Result, fromCache bool) {
	var (
		state       State
		destination models.RedirectDestination
		countdown   time.Duration
	)

	switch result.Outcome {
	case models.OutcomePaid:
		state = StateSucceeded
		destination = redirect.SuccessDestination(result.Snapshot)
		countdown = redirect.SuccessCountdownFor(result.Snapshot)
	case models.OutcomeFailed:
		state = StateFailed
		destination = redirect.FailureDestination(result.Snapshot)
		countdown = redirect.FailureCountdown
	default:
		return
	}

	seconds := int(countdown / time.Second)
	if !s.complete(state, result.Outcome, result.Snapshot, result.AttemptsUsed, &destination, seconds, s.autoNavigate) {
		return
	}

	logging.Info("Verification reached terminal outcome",
		zap.String("session_id", s.ID),
		zap.String("reference", s.Reference),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("attempts_used", result.AttemptsUsed),
		zap.String("redirect_kind", string(destination.Kind)),
		zap.Bool("from_cache", fromCache),
	)
	c.recordTerminal(ctx, result.Outcome, result.AttemptsUsed, &destination)

	if !fromCache {
		c.remember(ctx, s.Reference, result)
		c.publish(ctx, s, result)
	}
}

func (c *Controller) recall(ctx context.Context, reference string) *store.OutcomeRecord {
	if c.cache == nil {
		return nil
	}
	record, err := c.cache.Get(ctx, reference)
	if err != nil {
		logging.Warn("Outcome cache lookup failed, falling back to polling",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil
	}
	return record
}

func (c *Controller) remember(ctx context.Context, reference string, result verification.Result) {
	if c.cache == nil {
		return
	}
	record := store.OutcomeRecord{
		Outcome:      result.Outcome,
		Snapshot:     result.Snapshot,
		AttemptsUsed: result.AttemptsUsed,
		RecordedAt:   time.Now().UTC(),
	}
	if err := c.cache.Set(ctx, reference, record); err != nil {
		logging.Warn("Failed to cache terminal outcome",
			zap.String("reference", reference),
			zap.Error(err),
		)
	}
}

func (c *Controller) publish(ctx context.Context, s *Session, result verification.Result) {
	if c.publisher == nil {
		return
	}
	event := models.VerificationEvent{
		SessionID:    s.ID,
		Reference:    s.Reference,
		Outcome:      result.Outcome,
		AttemptsUsed: result.AttemptsUsed,
		CompletedAt:  time.Now().UTC(),
	}
	if result.Snapshot != nil {
		event.Gateway = result.Snapshot.Gateway
		event.Amount = result.Snapshot.Amount
		event.Currency = result.Snapshot.Currency
	}
	if err := c.publisher.PublishOutcome(ctx, event); err != nil {
		logging.Error("Failed to publish verification event",
			zap.String("reference", s.Reference),
			zap.Error(err),
		)
	}
}

func (c *Controller) recordTerminal(ctx context.Context, outcome models.Outcome, attempts int, destination *models.RedirectDestination) {
	if monitoring.VerificationsTotal != nil {
		monitoring.VerificationsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", string(outcome))),
		)
	}
	if monitoring.VerificationAttempts != nil {
		monitoring.VerificationAttempts.Record(ctx, int64(attempts))
	}
	if destination != nil && monitoring.RedirectsSelectedTotal != nil {
		monitoring.RedirectsSelectedTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(destination.Kind))),
		)
	}
}
