// Package progress tracks a student's way through a class: seeding lessons
// from a template, recording answers, completing lessons and scoring.
package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/quizcraft/internal/difficulty"
	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/logger"
	"github.com/abhisek/quizcraft/internal/store"
)

// maxSaveAttempts bounds reload rounds after a version conflict.
const maxSaveAttempts = 3

// Repository is the persistence progress tracking needs.
type Repository interface {
	LoadProfile(ctx context.Context, studentID string) (lesson.Profile, error)
	SaveProgress(ctx context.Context, p lesson.ProgressRecord) error
	LoadProgress(ctx context.Context, studentID, classID string) (lesson.ProgressRecord, error)
	ListClassProgress(ctx context.Context, classID string) ([]lesson.ProgressRecord, error)
	LoadLesson(ctx context.Context, key lesson.Key) (lesson.LessonRecord, int64, error)
	SaveLesson(ctx context.Context, key lesson.Key, rec lesson.LessonRecord, expectedVersion int64) (int64, error)
}

// Scheduler queues background personalization of a lesson.
type Scheduler interface {
	Submit(key lesson.Key) bool
}

// Service implements progress operations.
type Service struct {
	repo  Repository
	sched Scheduler
	log   *logger.Logger
}

// NewService creates a progress service. sched may be nil, in which case
// newly unlocked lessons are not personalized.
func NewService(repo Repository, sched Scheduler, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, sched: sched, log: log}
}

// Seed creates a student's progress in a class from tmpl, replacing any
// existing progress. Only the first lesson is unlocked. Every question is
// rated within its lesson.
func (s *Service) Seed(ctx context.Context, studentID, classID string, tmpl *lesson.Template) (lesson.ProgressRecord, error) {
	if studentID == "" || classID == "" {
		return lesson.ProgressRecord{}, &lesson.DataIntegrityError{Op: "seed", Reason: "student and class ids are required"}
	}
	if tmpl == nil || len(tmpl.Lessons) == 0 {
		return lesson.ProgressRecord{}, &lesson.DataIntegrityError{Op: "seed", Reason: "template has no lessons"}
	}
	if _, err := s.repo.LoadProfile(ctx, studentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return lesson.ProgressRecord{}, &lesson.DataIntegrityError{Op: "seed", Reason: "missing profile for student " + studentID, Err: err}
		}
		return lesson.ProgressRecord{}, fmt.Errorf("load profile: %w", err)
	}

	p := lesson.ProgressRecord{
		StudentID: studentID,
		ClassID:   classID,
		Lessons:   make(map[string]lesson.LessonRecord, len(tmpl.Lessons)),
	}
	for i, tl := range tmpl.Lessons {
		rec := lesson.NewLessonRecord(tl, i == 0)
		if err := rec.Validate(); err != nil {
			return lesson.ProgressRecord{}, err
		}
		difficulty.Apply(&rec)
		p.LessonOrder = append(p.LessonOrder, tl.ID)
		p.Lessons[tl.ID] = rec
	}

	if err := s.repo.SaveProgress(ctx, p); err != nil {
		return lesson.ProgressRecord{}, fmt.Errorf("save progress: %w", err)
	}
	s.log.Info("progress seeded", "student_id", studentID, "class", classID, "lessons", len(p.LessonOrder))
	return p, nil
}

// SubmitAnswer records a student's answer to one question. Negative times
// are stored as zero.
func (s *Service) SubmitAnswer(ctx context.Context, key lesson.Key, questionID string, correct bool, timeTaken int) error {
	if err := key.Validate(); err != nil {
		return err
	}
	timeTaken = max(timeTaken, 0)

	return s.update(ctx, key, func(rec *lesson.LessonRecord) error {
		q, ok := rec.Find(questionID)
		if !ok {
			return &lesson.DataIntegrityError{Op: "submit answer", Reason: fmt.Sprintf("lesson %s has no question %q", key, questionID)}
		}
		q.Correct = &correct
		q.TimeTaken = &timeTaken
		return nil
	})
}

// CompleteLesson marks a lesson completed and unlocks the one after it. The
// unlocked lesson is queued for personalization. It returns the unlocked
// lesson id, or "" when the completed lesson was the last one.
func (s *Service) CompleteLesson(ctx context.Context, studentID, classID, lessonID string) (string, error) {
	key := lesson.Key{StudentID: studentID, ClassID: classID, LessonID: lessonID}
	if err := key.Validate(); err != nil {
		return "", err
	}

	p, err := s.repo.LoadProgress(ctx, studentID, classID)
	if errors.Is(err, store.ErrNotFound) {
		return "", &lesson.DataIntegrityError{Op: "complete lesson", Reason: "no progress for " + studentID + "/" + classID, Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("load progress: %w", err)
	}
	pos := slices.Index(p.LessonOrder, lessonID)
	if pos < 0 {
		return "", &lesson.DataIntegrityError{Op: "complete lesson", Reason: "missing lesson " + key.String()}
	}

	if err := s.update(ctx, key, func(rec *lesson.LessonRecord) error {
		rec.Completed = true
		return nil
	}); err != nil {
		return "", err
	}

	if pos+1 >= len(p.LessonOrder) {
		return "", nil
	}
	next := lesson.Key{StudentID: studentID, ClassID: classID, LessonID: p.LessonOrder[pos+1]}
	if err := s.update(ctx, next, func(rec *lesson.LessonRecord) error {
		rec.Unlocked = true
		return nil
	}); err != nil {
		return "", err
	}
	s.log.Info("lesson unlocked", "student_id", studentID, "class", classID, "lesson", next.LessonID)

	if s.sched != nil && !s.sched.Submit(next) {
		s.log.Debug("personalization already queued", "lesson", next.String())
	}
	return next.LessonID, nil
}

// update applies fn to the stored lesson, reloading and reapplying on a
// version conflict.
func (s *Service) update(ctx context.Context, key lesson.Key, fn func(*lesson.LessonRecord) error) error {
	for range maxSaveAttempts {
		rec, version, err := s.repo.LoadLesson(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return &lesson.DataIntegrityError{Op: "update lesson", Reason: "missing lesson " + key.String(), Err: err}
		}
		if err != nil {
			return fmt.Errorf("load lesson: %w", err)
		}
		if err := fn(&rec); err != nil {
			return err
		}
		_, err = s.repo.SaveLesson(ctx, key, rec, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("save lesson: %w", err)
		}
		s.log.Debug("version conflict, retrying", "lesson", key.String())
	}
	return fmt.Errorf("update lesson %s: %w", key, store.ErrVersionConflict)
}

// Standing is one leaderboard row.
type Standing struct {
	StudentID string
	Points    int
	Completed int
}

var levelPoints = map[lesson.Level]int{
	lesson.Easy:   1,
	lesson.Medium: 2,
	lesson.Hard:   3,
}

// Points scores a progress record: 1 per correct easy answer, 2 per medium
// and 3 per hard.
func Points(p lesson.ProgressRecord) int {
	total := 0
	for _, rec := range p.Lessons {
		_ = rec.Each(func(lvl lesson.Level, _ int, q *lesson.QuestionSpec) error {
			if q.Correct != nil && *q.Correct {
				total += levelPoints[lvl]
			}
			return nil
		})
	}
	return total
}

// Leaderboard ranks every student of a class by points, ties broken by
// student id. With an empty classID a student's points are summed over all
// their classes.
func (s *Service) Leaderboard(ctx context.Context, classID string) ([]Standing, error) {
	all, err := s.repo.ListClassProgress(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("list class progress: %w", err)
	}

	index := make(map[string]int)
	var rows []Standing
	for _, p := range all {
		i, ok := index[p.StudentID]
		if !ok {
			i = len(rows)
			index[p.StudentID] = i
			rows = append(rows, Standing{StudentID: p.StudentID})
		}
		row := &rows[i]
		row.Points += Points(p)
		for _, rec := range p.Lessons {
			if rec.Completed {
				row.Completed++
			}
		}
	}
	slices.SortFunc(rows, func(a, b Standing) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		return strings.Compare(a.StudentID, b.StudentID)
	})
	return rows, nil
}
