// Package background runs best-effort side effects (email, translation
// warmup) off the request path with their own timeout and retry policy.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	taskTimeout      = 15 * time.Second
	retryBase        = 500 * time.Millisecond
	maxRetries       = 2
)

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Runner is a bounded worker pool. A full queue drops the task; submitters
// never block and task failure never propagates to the request that
// scheduled it.
type Runner struct {
	log    *zap.Logger
	queue  chan task
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func New(log *zap.Logger) *Runner {
	return &Runner{
		log:   log.Named("background.runner"),
		queue: make(chan task, defaultQueueSize),
	}
}

// Start launches the workers. The given context bounds all task execution.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	for i := 0; i < defaultWorkers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	if r.cancel != nil {
		r.cancel()
	}
}

// Submit enqueues fn. It reports whether the task was accepted.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- task{name: name, run: fn}:
		return true
	default:
		r.log.Warn("task dropped, queue full", zap.String("task", name))
		return false
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for t := range r.queue {
		r.execute(ctx, t)
	}
}

func (r *Runner) execute(ctx context.Context, t task) {
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
	err := retry.Do(taskCtx, backoff, func(ctx context.Context) error {
		if err := t.run(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		r.log.Warn("task failed", zap.String("task", t.name), zap.Error(err))
		return
	}
	r.log.Debug("task done", zap.String("task", t.name))
}

func registerHooks(lc fx.Lifecycle, runner *Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			runner.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			runner.Stop()
			return nil
		},
	})
}

var Module = fx.Module("background",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
