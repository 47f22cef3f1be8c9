package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/logger"
)

// DefaultBatch caps how many lessons one sweep queues.
const DefaultBatch = 50

// StaleLister finds lessons whose theme is behind the student's profile.
type StaleLister interface {
	StaleLessons(ctx context.Context, limit int) ([]lesson.Key, error)
}

// Submitter queues personalization work.
type Submitter interface {
	SubmitContext(ctx context.Context, key lesson.Key) bool
}

// Sweeper periodically re-queues lessons whose personalization is missing
// or outdated, e.g. after a recoverable failure or a theme change.
type Sweeper struct {
	scheduler *gocron.Scheduler
	lister    StaleLister
	submitter Submitter
	interval  time.Duration
	batch     int
	log       *logger.Logger

	ctx context.Context
}

// New creates a sweeper. It does nothing until Start.
func New(lister StaleLister, submitter Submitter, interval time.Duration, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Sweeper{
		scheduler: s,
		lister:    lister,
		submitter: submitter,
		interval:  interval,
		batch:     DefaultBatch,
		log:       log,
		ctx:       context.Background(),
	}
}

// Start schedules the sweep every interval, the first one immediately, and
// returns without blocking.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}
	s.ctx = ctx
	if _, err := s.scheduler.Every(s.interval).Do(s.run); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("sweeper started", "interval", s.interval)
	return nil
}

// Stop terminates scheduled sweeps.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

func (s *Sweeper) run() {
	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.Sweep(s.ctx); err != nil {
		s.log.Error("sweep failed", "error", err)
	}
}

// Sweep queues one batch of stale lessons and returns how many were accepted
// by the submitter.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	keys, err := s.lister.StaleLessons(ctx, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list stale lessons: %w", err)
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeSweep)

	queued := 0
	for _, key := range keys {
		if s.submitter.SubmitContext(ctx, key) {
			queued++
		}
	}
	if len(keys) > 0 {
		s.log.Info("sweep queued lessons", "stale", len(keys), "queued", queued)
	}
	return queued, nil
}
