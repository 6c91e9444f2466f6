package transcribe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
)

// Executor retries transport failures with a fixed backoff. API rejections,
// including 401, end the loop on the first response.
type Executor struct {
	MaxAttempts int
	Backoff     time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(maxAttempts int, backoff time.Duration) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff < 0 {
		backoff = DefaultBackoff
	}
	return &Executor{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		sleep:       sleepContext,
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	backend Backend,
	input model.Input,
	tracker *progress.Tracker,
) (*Response, error) {
	log := logging.NewLogger(ctx).WithField("provider", backend.Name())
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	sleep := e.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	lastReason := ""
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Debugf("attempt=%d/%d input=%s", attempt, maxAttempts, input)

		response, err := backend.Send(ctx, input, tracker)
		if err != nil {
			var inputErr *InputError
			if errors.As(err, &inputErr) {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, utils.WrapIfNotNil(ctxErr)
			}

			lastReason = DescribeTransportError(err)
			log.Debugf("attempt=%d transport error: %v", attempt, err)
			if attempt == maxAttempts {
				break
			}

			log.Warnf("Attempt %d failed: %s Retrying in %s...", attempt, lastReason, e.Backoff)
			if input.IsFile() {
				tracker.Reset()
			}
			tracker.SetPhase(model.PhaseWaiting, "Retrying in "+e.Backoff.String()+"...")
			if err := sleep(ctx, e.Backoff); err != nil {
				return nil, utils.WrapIfNotNil(err)
			}
			continue
		}

		response.Attempts = attempt
		if response.StatusCode == http.StatusUnauthorized {
			return nil, &Error{Kind: KindInvalidAPIKey, StatusCode: response.StatusCode, Attempts: attempt}
		}
		if response.StatusCode >= 400 {
			return nil, &Error{
				Kind:       KindAPI,
				StatusCode: response.StatusCode,
				Body:       string(response.Body),
				Attempts:   attempt,
			}
		}
		return response, nil
	}

	return nil, &Error{Kind: KindMaxRetriesExceeded, Attempts: maxAttempts, Reason: lastReason}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
