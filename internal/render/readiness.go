package render

import (
	"context"
	"time"
)

// Prober samples the current length of the page's visible text.
// Implementations read from a live browser page; tests substitute
// scripted values.
type Prober func(ctx context.Context) (int, error)

// AwaitContent waits until a page has rendered enough visible text to
// be worth capturing.
//
// The sequence is fixed: sleep InitialDelay, then sample via probe
// every PollInterval. Sampling stops the moment a sample exceeds
// TextThreshold or the MaxWait budget is spent, whichever comes first.
// Either way exactly one SettleDelay follows before returning, giving
// late fragments a chance to join the capture.
//
// The returned bool reports whether the threshold was met. Exhausting
// the budget is not an error: slim pages are captured as they are. The
// only error returned is the context's, when the caller cancels or the
// render deadline passes.
func AwaitContent(ctx context.Context, probe Prober, settings WaitSettings) (bool, error) {
	if err := sleep(ctx, settings.InitialDelay); err != nil {
		return false, err
	}

	ready := false
	start := time.Now()
	for {
		length, err := probe(ctx)
		if err == nil && length > settings.TextThreshold {
			ready = true
			break
		}
		if err != nil && ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Probe failures outside cancellation count as zero-length
		// samples; the page may simply not have a body yet.

		if time.Since(start) >= settings.MaxWait {
			break
		}
		if err := sleep(ctx, settings.PollInterval); err != nil {
			return false, err
		}
	}

	if err := sleep(ctx, settings.SettleDelay); err != nil {
		return ready, err
	}
	return ready, nil
}

// sleep blocks for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
