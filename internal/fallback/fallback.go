// Package fallback runs calls to optional subsystems so that their failure
// degrades a response instead of failing it.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
)

// Call runs fn under timeout and returns its value. If fn errors, panics, or
// overruns, Call logs the failure and returns fallback with ok set to false.
// A zero timeout means only ctx bounds the call.
func Call[T any](ctx context.Context, subsystem, projectCode string, timeout time.Duration, fn func(context.Context) (T, error), fallback T) (value T, ok bool) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			logging.Degraded(subsystem, projectCode, r.err)
			return fallback, false
		}
		return r.value, true
	case <-ctx.Done():
		logging.Degraded(subsystem, projectCode, ctx.Err())
		return fallback, false
	}
}
