package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/containerd/errdefs"
)

// isTransient reports whether a cluster error is worth retrying.
// A per-call deadline counts as transient; cancellation of the caller's
// context does not.
func isTransient(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errdefs.IsUnavailable(err)
}

// call runs fn against the cluster with a per-call timeout. Transient
// failures are retried up to MaxRetries times with exponential backoff and
// then reported as CodeTimeout. Other failures are returned unchanged after
// the first attempt.
func (m *Manager) call(ctx context.Context, op, path string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.RetryBackoff
	b.MaxInterval = 16 * m.opts.RetryBackoff

	attempt := func() (struct{}, error) {
		callCtx, cancel := m.callContext(ctx)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return struct{}{}, nil
		}
		if !isTransient(ctx, err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(m.opts.MaxRetries)+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.logger.Warn("transient cluster error, retrying",
				"op", op,
				"path", path,
				"backoff", next,
				"error", err,
			)
		}),
	)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if isTransient(ctx, err) {
		return newError(CodeTimeout, op, path,
			"cluster did not respond after retries", err)
	}
	return err
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opts.CallTimeout)
}
