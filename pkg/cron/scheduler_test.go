package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunNow(t *testing.T) {
	calls := 0
	s := NewScheduler(func(ctx context.Context) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}, time.Minute, discardLogger())

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestScheduler_RunNowPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s := NewScheduler(func(ctx context.Context) error { return boom }, time.Minute, discardLogger())

	assert.ErrorIs(t, s.RunNow(context.Background()), boom)
}

func TestScheduler_StartInvalidSpec(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, time.Minute, discardLogger())

	err := s.Start("not a schedule")
	assert.Error(t, err)
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, time.Minute, discardLogger())

	require.NoError(t, s.Start("@every 1h"))
	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
