package verification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"verification-service/backend"
	"verification-service/logging"
	"verification-service/models"
)

// Defaults for the polling loop. With the 1.5x multiplier the delay series is
// 2s, 3s, 4.5s, 6.75s, then pinned at 10s, bounding a full 30-attempt session
// to a few minutes of wall clock.
const (
	DefaultMaxAttempts       = 30
	DefaultInitialDelay      = 2 * time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// ProgressFunc is invoked after every status-check attempt, in strict attempt
// order, never after a terminal result has been returned.
type ProgressFunc func(attempt, maxAttempts int, nextDelay time.Duration)

// Result is the terminal outcome of one verification call.
type Result struct {
	Snapshot     *models.TransactionSnapshot
	Outcome      models.Outcome
	AttemptsUsed int
	Err          error
}

// Options configures a Poller. Zero values fall back to the defaults.
type Options struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// Poller resolves a transaction reference to a terminal outcome, or reports
// exhaustion, using bounded retry with exponential backoff.
type Poller struct {
	checker           backend.StatusChecker
	maxAttempts       int
	initialDelay      time.Duration
	maxDelay          time.Duration
	backoffMultiplier float64
}

// NewPoller creates a poller over the given status checker.
func NewPoller(checker backend.StatusChecker, opts Options) *Poller {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.BackoffMultiplier <= 1 {
		opts.BackoffMultiplier = DefaultBackoffMultiplier
	}
	return &Poller{
		checker:           checker,
		maxAttempts:       opts.MaxAttempts,
		initialDelay:      opts.InitialDelay,
		maxDelay:          opts.MaxDelay,
		backoffMultiplier: opts.BackoffMultiplier,
	}
}

// MaxAttempts returns the configured attempt budget.
func (p *Poller) MaxAttempts() int {
	return p.maxAttempts
}

// Verify polls the backend until the transaction reaches a terminal outcome
// or the attempt budget is exhausted. Transport errors are retried like
// pending results; only the final attempt's error is attached to the result.
// A pending result after exhaustion means "still processing", never failure.
func (p *Poller) Verify(ctx context.Context, reference string, onProgress ProgressFunc) Result {
	delay := p.initialDelay
	attempts := 0

	var lastErr error

	for attempts < p.maxAttempts {
		attempts++

		snapshot, err := p.checker.CheckTransactionStatus(ctx, reference)
		if err != nil {
			lastErr = err
			logging.Warn("Transaction status check failed, will retry",
				zap.String("reference", reference),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", p.maxAttempts),
				zap.Error(err),
			)
			if onProgress != nil {
				onProgress(attempts, p.maxAttempts, delay)
			}
		} else {
			lastErr = nil
			outcome := models.Classify(snapshot)
			if onProgress != nil {
				onProgress(attempts, p.maxAttempts, delay)
			}
			if outcome.Terminal() {
				return Result{Snapshot: snapshot, Outcome: outcome, AttemptsUsed: attempts}
			}
		}

		if attempts >= p.maxAttempts {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			// Aborted mid-wait. Report what we know without touching the
			// checker again.
			return Result{Outcome: models.OutcomePending, AttemptsUsed: attempts, Err: err}
		}
		delay = nextDelay(delay, p.backoffMultiplier, p.maxDelay)
	}

	// Attempt budget exhausted while still pending. This is the verification
	// timeout, distinct from a definitive failure.
	return Result{Outcome: models.OutcomePending, AttemptsUsed: attempts, Err: lastErr}
}

// VerifyOnce performs a single non-looping check, for manual "check again"
// actions.
func (p *Poller) VerifyOnce(ctx context.Context, reference string) Result {
	snapshot, err := p.checker.CheckTransactionStatus(ctx, reference)
	if err != nil {
		return Result{Outcome: models.OutcomePending, AttemptsUsed: 1, Err: err}
	}
	return Result{Snapshot: snapshot, Outcome: models.Classify(snapshot), AttemptsUsed: 1}
}

func nextDelay(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max {
		next = max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
