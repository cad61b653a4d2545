package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/pkg/ai"
)

func noWait(t *testing.T) {
	t.Helper()
	prev := newBackOff
	newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(func() { newBackOff = prev })
}

func TestJobBegin_Metadata(t *testing.T) {
	id := uuid.New()
	ctx, cancel := JobBegin(context.Background(), id, "file", 2, 0)
	defer cancel()

	meta := GetJobMetadata(ctx)
	assert.Equal(t, id, meta.JobID)
	assert.Equal(t, "file", meta.JobType)
	assert.Equal(t, 2, meta.WorkerID)
	assert.Equal(t, DefaultMaxRetries, meta.MaxRetries)
	assert.False(t, meta.StartTime.IsZero())

	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestJobEnd_RetriesRetryableErrors(t *testing.T) {
	noWait(t)
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "file", 0, 0)
	defer cancel()

	var attempts []int
	err := JobEnd(ctx, func(ctx context.Context) error {
		attempts = append(attempts, GetRetryAttempt(ctx))
		if len(attempts) < 3 {
			return fmt.Errorf("fetch: %w", ai.ErrRateLimited)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestJobEnd_GivesUpAfterMaxRetries(t *testing.T) {
	noWait(t)
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "file", 0, 0)
	defer cancel()

	calls := 0
	err := JobEnd(ctx, func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	require.Error(t, err)
	assert.Equal(t, DefaultMaxRetries, calls)
	assert.Contains(t, err.Error(), "job failed after 3 attempts")
}

func TestJobEnd_NonRetryableStopsImmediately(t *testing.T) {
	noWait(t)
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "file", 0, 0)
	defer cancel()

	sentinel := errors.New("document is empty")
	calls := 0
	err := JobEnd(ctx, func(context.Context) error {
		calls++
		return sentinel
	})
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, sentinel))
	assert.Contains(t, err.Error(), "non-retryable error")
}

func TestJobEnd_RecoversPanics(t *testing.T) {
	noWait(t)
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "file", 0, 0)
	defer cancel()

	err := JobEnd(ctx, func(context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered: boom")
}

func TestJobEnd_CancelledContext(t *testing.T) {
	noWait(t)
	ctx, cancel := JobBegin(context.Background(), uuid.New(), "file", 0, 0)
	cancel()

	called := false
	err := JobEnd(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("score: %w", context.DeadlineExceeded), false},
		{fmt.Errorf("%w: 502", ai.ErrUpstream), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"), true},
		{errors.New("We encountered an internal error, please try again."), true},
		{errors.New("invalid character '}' looking for beginning of value"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.err), "%v", tt.err)
	}
}
