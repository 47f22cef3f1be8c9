package personalize

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/logger"
)

// Personalizer is the unit of work the Runner schedules.
type Personalizer interface {
	Personalize(ctx context.Context, key lesson.Key) (Report, error)
}

// Outcome is delivered to the observer after every task.
type Outcome struct {
	Key    lesson.Key
	Report Report
	Err    error
}

// Runner executes personalizations in the background with bounded
// concurrency. A key already queued or running is not submitted twice.
type Runner struct {
	svc     Personalizer
	cfg     RunnerConfig
	log     *logger.Logger
	sem     *semaphore.Weighted
	observe func(Outcome)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[lesson.Key]struct{}
	closed   bool
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithObserver registers fn to receive every task outcome.
func WithObserver(fn func(Outcome)) RunnerOption {
	return func(r *Runner) { r.observe = fn }
}

// NewRunner creates a runner. Tasks run under ctx; cancelling it or calling
// Close aborts outstanding work.
func NewRunner(ctx context.Context, svc Personalizer, cfg RunnerConfig, log *logger.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &Runner{
		svc:      svc,
		cfg:      cfg,
		log:      log,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[lesson.Key]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit schedules personalization of key. It returns false when the key is
// already in flight or the runner is closed.
func (r *Runner) Submit(key lesson.Key) bool {
	return r.SubmitContext(r.ctx, key)
}

// SubmitContext is Submit with per-task context values (such as the llm
// purpose). Cancellation still follows the runner.
func (r *Runner) SubmitContext(parent context.Context, key lesson.Key) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	if _, busy := r.inflight[key]; busy {
		r.mu.Unlock()
		return false
	}
	r.inflight[key] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(parent, key)
	return true
}

func (r *Runner) run(parent context.Context, key lesson.Key) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.inflight, key)
		r.mu.Unlock()
	}()

	var (
		rep Report
		err error
	)
	if err = r.sem.Acquire(r.ctx, 1); err == nil {
		rep, err = r.execute(parent, key)
		r.sem.Release(1)
	} else {
		err = &ExternalServiceError{Err: err}
	}

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		r.log.Debug("personalization cancelled", "lesson", key.String())
	default:
		r.log.Warn("background personalization failed", "lesson", key.String(), "error", err)
	}
	if r.observe != nil {
		r.observe(Outcome{Key: key, Report: rep, Err: err})
	}
}

func (r *Runner) execute(parent context.Context, key lesson.Key) (Report, error) {
	ctx := context.WithoutCancel(parent)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	if r.cfg.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.cfg.TaskTimeout)
		defer cancelTimeout()
	}
	return r.svc.Personalize(ctx, key)
}

// InFlight reports the number of queued or running tasks.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close rejects new submissions, cancels outstanding tasks and waits for them.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
