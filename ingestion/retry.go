// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/docindex/core"
)

// Backoff retries embedding calls with exponentially growing pauses.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration // zero leaves the delay uncapped
}

// Delay returns the pause after the given failed attempt (1-based):
// BaseDelay doubled for every earlier failure, capped at MaxDelay.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.MaxDelay > 0 && delay >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if b.MaxDelay > 0 && delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}

// Retry calls op until it succeeds, attempts run out or ctx ends. Errors
// marked with Permanent, dimension mismatches and context errors end the
// loop at once. The error of the last attempt is returned.
func (b Backoff) Retry(ctx context.Context, op func(ctx context.Context) error) error {
	if b.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var permanent *permanentError
		if errors.As(lastErr, &permanent) {
			return permanent.err
		}
		if errors.Is(lastErr, core.ErrDimensionMismatch) ||
			errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == b.MaxAttempts {
			break
		}

		delay := b.Delay(attempt)
		slog.Debug("embedding failed, will retry", "attempt", attempt, "maxAttempts", b.MaxAttempts, "delay", delay, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
