package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunner_TasksFireImmediatelyAndRepeat(t *testing.T) {
	r := NewRunner()
	var count int32
	r.Add("counter", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestRunner_FailingTaskKeepsSchedule(t *testing.T) {
	r := NewRunner()
	var count int32
	r.Add("flaky", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return errors.New("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()

	_ = r.Run(ctx)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(2))
}

func TestRunner_PanickingTaskDoesNotKillOthers(t *testing.T) {
	r := NewRunner()
	var healthy int32
	r.Add("panicky", 20*time.Millisecond, func(ctx context.Context) error {
		panic("boom")
	})
	r.Add("healthy", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&healthy, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()

	_ = r.Run(ctx)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&healthy), int32(2))
}

func TestRunner_NoTasksReturnsOnCancel(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
