package moderation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"steward/service"
)

func newTestFeature() (*Feature, *[]time.Duration) {
	f := New(new(service.MockModerationService))
	var slept []time.Duration
	f.sleep = func(d time.Duration) { slept = append(slept, d) }
	return f, &slept
}

func TestWithRetries_SucceedsFirstTry(t *testing.T) {
	f, slept := newTestFeature()
	calls := 0
	ok := f.withRetries(func() error {
		calls++
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestWithRetries_LadderThenSkip(t *testing.T) {
	f, slept := newTestFeature()
	calls := 0
	ok := f.withRetries(func() error {
		calls++
		return errors.New("rate limited")
	})
	assert.False(t, ok)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *slept)
}

func TestWithRetries_RecoversMidLadder(t *testing.T) {
	f, _ := newTestFeature()
	calls := 0
	ok := f.withRetries(func() error {
		calls++
		if calls < 3 {
			return errors.New("rate limited")
		}
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestCancelFlag_IsPerGuildAndOperation(t *testing.T) {
	f, _ := newTestFeature()

	f.requestCancel("guild1", "raid")
	assert.True(t, f.isCancelled("guild1", "raid"))
	assert.False(t, f.isCancelled("guild1", "unbanall"))
	assert.False(t, f.isCancelled("guild2", "raid"))

	f.resetCancel("guild1", "raid")
	assert.False(t, f.isCancelled("guild1", "raid"))
}
