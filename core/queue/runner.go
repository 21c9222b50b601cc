package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/defistack/automate/metrics"
	"github.com/defistack/automate/model"
	"github.com/defistack/automate/pkg/logger"
)

// Handler executes one claimed task. Handlers are the only place side
// effects happen; everything else in the system just moves data.
type Handler interface {
	Perform(p *Process) error
}

// HandlerFunc adapts a plain function to the Handler interface
type HandlerFunc func(p *Process) error

func (f HandlerFunc) Perform(p *Process) error {
	return f(p)
}

type RunnerOption struct {
	// Workers is how many tasks may execute concurrently
	Workers int

	// PollInterval is how often an idle worker re-checks the store
	PollInterval time.Duration
}

// Runner polls the queue and dispatches claimed tasks to registered
// handlers by name. One handler failure never affects concurrently running
// unrelated tasks: every execution is isolated behind its own recover.
type Runner struct {
	q        *Queue
	registry map[string]Handler

	workers      int
	pollInterval time.Duration

	logger  logger.Logger
	metrics *metrics.Collector
}

func NewRunner(q *Queue, lg logger.Logger, m *metrics.Collector, opt *RunnerOption) *Runner {
	workers := 4
	poll := time.Second
	if opt != nil {
		if opt.Workers > 0 {
			workers = opt.Workers
		}
		if opt.PollInterval > 0 {
			poll = opt.PollInterval
		}
	}

	return &Runner{
		q:            q,
		registry:     make(map[string]Handler),
		workers:      workers,
		pollInterval: poll,
		logger:       logger.EnsureLogger(lg),
		metrics:      m,
	}
}

// RegisterHandler binds a handler name to its implementation. Names are
// the addressing scheme of the whole queue, registration happens once at
// boot before Run.
func (r *Runner) RegisterHandler(name string, h Handler) {
	r.registry[name] = h
}

// Run starts the worker pool and blocks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.q.Recover(); err != nil {
		return fmt.Errorf("recover stranded tasks: %w", err)
	}

	done := make(chan struct{})
	for i := 0; i < r.workers; i++ {
		go r.workerLoop(ctx, done)
	}

	<-ctx.Done()
	for i := 0; i < r.workers; i++ {
		<-done
	}
	return nil
}

func (r *Runner) workerLoop(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				tasks, err := r.q.ClaimDue(1, time.Now())
				if err != nil {
					r.logger.Error("failed to claim due tasks", "error", err)
					break
				}
				if len(tasks) == 0 {
					break
				}
				r.dispatch(tasks[0])
			}
		}
	}
}

func (r *Runner) dispatch(task *model.Task) {
	handler, ok := r.registry[task.Handler]
	if !ok {
		r.logger.Error("unknown handler", "task_id", task.ID, "handler", task.Handler)
		r.completeWithError(task, fmt.Errorf("unknown handler %q", task.Handler))
		return
	}

	p := newProcess(task)
	err := r.perform(handler, p)

	if err != nil {
		r.completeWithError(task, err)
		return
	}

	switch p.outcome {
	case outcomeError:
		r.completeWithError(task, p.reason)
	case outcomeLater:
		if err := r.q.MarkDone(task); err != nil {
			r.logger.Error("failed to mark task done", "task_id", task.ID, "error", err)
			return
		}
		if _, err := r.q.PushAt(task.Handler, task.Params, p.laterAt); err != nil {
			r.logger.Error("failed to reschedule task", "task_id", task.ID, "handler", task.Handler, "error", err)
			return
		}
		r.observe(task, "rescheduled")
	default:
		if err := r.q.MarkDone(task); err != nil {
			r.logger.Error("failed to mark task done", "task_id", task.ID, "error", err)
			return
		}
		r.observe(task, "done")
	}
}

// perform isolates a single handler execution, converting panics into a
// handler fault error so one bad handler cannot take the worker down
func (r *Runner) perform(h Handler, p *Process) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler fault: %v", rec)
		}
	}()

	return h.Perform(p)
}

func (r *Runner) completeWithError(task *model.Task, reason error) {
	msg := "unknown failure"
	if reason != nil {
		msg = reason.Error()
	}

	if err := r.q.MarkError(task, msg); err != nil {
		r.logger.Error("failed to mark task errored", "task_id", task.ID, "error", err)
		return
	}

	r.logger.Error("task failed", "task_id", task.ID, "handler", task.Handler, "reason", msg)
	r.observe(task, "error")
}

func (r *Runner) observe(task *model.Task, status string) {
	if r.metrics != nil {
		r.metrics.IncTaskProcessed(task.Handler, status)
	}
}
