package playback

import (
	"context"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/log"
)

// RetryBudget bounds one class of resume attempts.
type RetryBudget struct {
	Attempts int
	Delay    time.Duration
}

// ResumeRetryCoordinator executes bounded retries of "apply saved resume
// position" operations. Adaptive streams get a bigger budget and a longer
// per-attempt delay because the server has to restart a transcode before the
// seek can land; direct-play streams fail or succeed quickly.
type ResumeRetryCoordinator struct {
	adaptive RetryBudget
	direct   RetryBudget
}

// NewResumeRetryCoordinator builds a coordinator with the given per-stream-kind budgets.
func NewResumeRetryCoordinator(adaptive, direct RetryBudget) *ResumeRetryCoordinator {
	return &ResumeRetryCoordinator{adaptive: adaptive, direct: direct}
}

// Budget returns the retry budget for the given stream kind.
func (c *ResumeRetryCoordinator) Budget(adaptive bool) RetryBudget {
	if adaptive {
		return c.adaptive
	}
	return c.direct
}

// Retry runs attempt until it succeeds, the budget is exhausted, the context
// is cancelled, or stillPending reports that another path already resolved
// the resume. It returns whether the resume ended up resolved and how many
// attempts were spent. Exhaustion is reported to the caller, never swallowed:
// resolved == false with a full attempt count means the budget ran out.
func (c *ResumeRetryCoordinator) Retry(
	ctx context.Context,
	adaptive bool,
	attempt func(context.Context) (bool, error),
	stillPending func() bool,
) (resolved bool, attempts int) {
	budget := c.Budget(adaptive)

	for attempts = 1; attempts <= budget.Attempts; attempts++ {
		if !sleepCtx(ctx, budget.Delay) {
			return false, attempts - 1
		}

		if !stillPending() {
			// Another path (user seek, track change) resolved or cancelled it.
			return true, attempts - 1
		}

		ok, err := attempt(ctx)
		if err != nil {
			log.Debugf("resume attempt %d failed: %v", attempts, err)
			continue
		}
		if ok {
			return true, attempts
		}
	}

	return false, budget.Attempts
}

// sleepCtx is a cancellable sleep. It returns false when the context was
// cancelled before the delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
