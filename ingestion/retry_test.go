package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{BaseDelay: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))

	b.MaxDelay = 300 * time.Millisecond
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 300*time.Millisecond, b.Delay(3))
	assert.Equal(t, 300*time.Millisecond, b.Delay(60))

	b.BaseDelay = time.Second
	assert.Equal(t, 300*time.Millisecond, b.Delay(1), "cap applies to the first pause too")
}

func TestBackoff_Retry(t *testing.T) {
	transient := errors.New("service busy")

	tests := []struct {
		name         string
		maxAttempts  int
		failures     int // attempts that fail before success
		err          error
		wantAttempts int
		wantErr      error
	}{
		{"first try", 3, 0, transient, 1, nil},
		{"eventual success", 5, 2, transient, 3, nil},
		{"attempts exhausted", 3, 10, transient, 3, transient},
		{"single attempt", 1, 10, transient, 1, transient},
		{"permanent", 5, 10, Permanent(transient), 1, transient},
		{"dimension mismatch", 5, 10, fmt.Errorf("%w: %w", core.ErrEmbedding, core.ErrDimensionMismatch), 1, core.ErrDimensionMismatch},
		{"zero attempts", 0, 0, nil, 0, ErrInvalidMaxAttempts},
		{"negative attempts", -1, 0, nil, 0, ErrInvalidMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			b := Backoff{MaxAttempts: tt.maxAttempts, BaseDelay: time.Millisecond}
			err := b.Retry(context.Background(), func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBackoff_PermanentIsUnwrapped(t *testing.T) {
	cause := errors.New("bad request")
	b := Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := b.Retry(context.Background(), func(context.Context) error {
		return Permanent(cause)
	})
	assert.Same(t, cause, err)
	assert.Nil(t, Permanent(nil))
}

func TestBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	b := Backoff{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond}

	err := b.Retry(ctx, func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestBackoff_ContextTimeoutDuringPause(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	b := Backoff{MaxAttempts: 10, BaseDelay: time.Second}
	start := time.Now()

	err := b.Retry(ctx, func(context.Context) error {
		attempts++
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "pause should end with the context")
}

func TestBackoff_OperationSeesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "batch-7")
	b := Backoff{MaxAttempts: 1}

	var got any
	require.NoError(t, b.Retry(ctx, func(ctx context.Context) error {
		got = ctx.Value(key{})
		return nil
	}))
	assert.Equal(t, "batch-7", got)
}

func TestBackoff_PausesGrow(t *testing.T) {
	var times []time.Time
	b := Backoff{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond}

	_ = b.Retry(context.Background(), func(context.Context) error {
		times = append(times, time.Now())
		return errors.New("error")
	})

	require.Len(t, times, 4)
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, b.Delay(i), "pause %d too short", i)
	}
}
