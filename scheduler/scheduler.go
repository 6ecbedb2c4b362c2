// Package scheduler runs the periodic background work: giveaway draws,
// timed-action expiry, reminder delivery and the stream poller.
package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the tick for expiry-style tasks.
const DefaultInterval = time.Minute

// TaskFunc is one unit of periodic work. A returned error is logged, not
// fatal; the task keeps its schedule.
type TaskFunc func(ctx context.Context) error

type task struct {
	name  string
	every time.Duration
	fn    TaskFunc
}

// Runner owns a set of periodic tasks and runs each on its own ticker.
type Runner struct {
	tasks []task
}

// NewRunner creates a new scheduler runner
func NewRunner() *Runner {
	return &Runner{}
}

// Add registers a task to run every interval.
func (r *Runner) Add(name string, every time.Duration, fn TaskFunc) {
	r.tasks = append(r.tasks, task{name: name, every: every, fn: fn})
}

// Run starts every task and blocks until the context is cancelled. Each task
// fires once immediately, then on its interval.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range r.tasks {
		t := t
		g.Go(func() error {
			ticker := time.NewTicker(t.every)
			defer ticker.Stop()

			runTask(ctx, t)
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					runTask(ctx, t)
				}
			}
		})
	}
	return g.Wait()
}

func runTask(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"task": t.name, "panic": r}).Error("Scheduled task panicked")
		}
	}()
	if err := t.fn(ctx); err != nil {
		log.WithFields(log.Fields{"task": t.name, "error": err}).Error("Scheduled task failed")
	}
}
