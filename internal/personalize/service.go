package personalize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/logger"
	"github.com/abhisek/quizcraft/internal/store"
)

// Repository is the persistence the service needs. *store.Store implements
// it; lookups of absent rows return store.ErrNotFound and stale saves return
// store.ErrVersionConflict.
type Repository interface {
	LoadLesson(ctx context.Context, key lesson.Key) (lesson.LessonRecord, int64, error)
	SaveLesson(ctx context.Context, key lesson.Key, rec lesson.LessonRecord, expectedVersion int64) (int64, error)
	LoadProfile(ctx context.Context, studentID string) (lesson.Profile, error)
}

// maxMergeAttempts bounds reload-and-merge rounds after a version conflict.
const maxMergeAttempts = 3

// Service loads, personalizes and saves one lesson at a time per key.
type Service struct {
	repo     Repository
	pipeline *Pipeline
	log      *logger.Logger
	locks    *keyedMutex
}

// NewService creates a personalization service.
func NewService(repo Repository, provider llm.Provider, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		pipeline: NewPipeline(provider, cfg, log),
		log:      log,
		locks:    newKeyedMutex(),
	}
}

// Personalize themes the stored lesson at key with the student's profile
// theme and persists the result. On any error the stored record is left as
// it was.
func (s *Service) Personalize(ctx context.Context, key lesson.Key) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), Key: key}

	if err := key.Validate(); err != nil {
		return report, err
	}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return report, &ExternalServiceError{Err: err}
	}
	defer unlock()

	profile, err := s.repo.LoadProfile(ctx, key.StudentID)
	if errors.Is(err, store.ErrNotFound) {
		return report, &lesson.DataIntegrityError{Op: "personalize", Reason: "missing profile for student " + key.StudentID, Err: err}
	}
	if err != nil {
		return report, fmt.Errorf("load profile: %w", err)
	}
	if profile.Theme == "" {
		return report, &lesson.DataIntegrityError{Op: "personalize", Reason: "missing theme for student " + key.StudentID}
	}
	report.Theme = profile.Theme

	rec, version, err := s.repo.LoadLesson(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return report, &lesson.DataIntegrityError{Op: "personalize", Reason: "missing lesson " + key.String(), Err: err}
	}
	if err != nil {
		return report, fmt.Errorf("load lesson: %w", err)
	}

	log := s.log.With("run_id", report.RunID, "student_id", key.StudentID, "class", key.ClassID, "lesson", key.LessonID)
	log.Info("personalizing lesson", "theme", profile.Theme, "questions", rec.QuestionCount())

	if llm.PurposeFrom(ctx) == "unknown" {
		ctx = llm.WithPurpose(ctx, llm.PurposePersonalize)
	}
	res, err := s.pipeline.Apply(ctx, rec, profile.Theme)
	report.Attempts = res.Attempts
	if err != nil {
		log.Warn("personalization failed", "attempts", res.Attempts, "error", err)
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, &ExternalServiceError{Attempts: res.Attempts, Err: err}
	}

	if err := s.save(ctx, key, res.Record, version); err != nil {
		return report, err
	}

	for _, d := range res.Decisions {
		if d.Accepted {
			report.Accepted = append(report.Accepted, d.QuestionID)
		} else {
			report.Rejected = append(report.Rejected, d.QuestionID)
		}
	}
	report.Duration = time.Since(start)
	log.Info("lesson personalized",
		"attempts", report.Attempts,
		"accepted", len(report.Accepted),
		"rejected", len(report.Rejected),
		"duration", report.Duration)
	return report, nil
}

// save writes themed at version, merging its presentation onto the latest
// stored record when someone else saved in the meantime.
func (s *Service) save(ctx context.Context, key lesson.Key, themed lesson.LessonRecord, version int64) error {
	rec := themed
	for range maxMergeAttempts {
		_, err := s.repo.SaveLesson(ctx, key, rec, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("save lesson: %w", err)
		}

		latest, latestVersion, err := s.repo.LoadLesson(ctx, key)
		if err != nil {
			return fmt.Errorf("reload lesson: %w", err)
		}
		s.log.Debug("version conflict, merging presentation", "lesson", key.LessonID, "version", latestVersion)
		rec = mergePresentation(latest, themed)
		version = latestVersion
	}
	return fmt.Errorf("save lesson %s: %w", key, store.ErrVersionConflict)
}

// keyedMutex serializes work per lesson key. Lock waits honor ctx.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[lesson.Key]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[lesson.Key]*keyLock)}
}

// Lock acquires the lock for key and returns its release function.
func (m *keyedMutex) Lock(ctx context.Context, key lesson.Key) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			m.release(key, l)
		}, nil
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}
}

func (m *keyedMutex) release(key lesson.Key, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}
