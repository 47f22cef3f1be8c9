package practice

import (
	"math/big"
	"strings"
	"time"

	"github.com/abhisek/quizcraft/internal/lesson"
)

// Item is one question in play order.
type Item struct {
	Level    lesson.Level
	Index    int
	Question lesson.QuestionSpec
}

// Attempt is a graded answer to one question.
type Attempt struct {
	QuestionID string
	Given      string
	Correct    bool
	TimeTaken  int // seconds
}

// Session walks a student through one lesson, grading and timing each
// answer. It is not safe for concurrent use.
type Session struct {
	Key   lesson.Key
	Title string
	Theme string

	items    []Item
	pos      int
	started  time.Time
	attempts []Attempt
}

// NewSession prepares a practice run over rec. Locked or empty lessons
// cannot be practiced.
func NewSession(key lesson.Key, rec lesson.LessonRecord, now time.Time) (*Session, error) {
	if !rec.Unlocked {
		return nil, &lesson.DataIntegrityError{Op: "practice", Reason: "lesson " + key.LessonID + " is locked"}
	}

	s := &Session{Key: key, Title: rec.Title, Theme: rec.Theme, started: now}
	_ = rec.Each(func(lvl lesson.Level, idx int, q *lesson.QuestionSpec) error {
		s.items = append(s.items, Item{Level: lvl, Index: idx, Question: *q})
		return nil
	})
	if len(s.items) == 0 {
		return nil, &lesson.DataIntegrityError{Op: "practice", Reason: "lesson " + key.LessonID + " has no questions"}
	}
	if s.Title == "" {
		s.Title = key.LessonID
	}
	return s, nil
}

// Current returns the question being asked, false once every question was
// answered.
func (s *Session) Current() (Item, bool) {
	if s.pos >= len(s.items) {
		return Item{}, false
	}
	return s.items[s.pos], true
}

// Answer grades given against the current question. The time taken runs
// from the moment the question was shown.
func (s *Session) Answer(given string, now time.Time) (Attempt, bool) {
	item, ok := s.Current()
	if !ok {
		return Attempt{}, false
	}
	a := Attempt{
		QuestionID: item.Question.ID,
		Given:      strings.TrimSpace(given),
		Correct:    CheckAnswer(given, item.Question.Solution),
		TimeTaken:  max(0, int(now.Sub(s.started).Round(time.Second)/time.Second)),
	}
	s.attempts = append(s.attempts, a)
	return a, true
}

// Next moves to the following question and starts its clock.
func (s *Session) Next(now time.Time) {
	if s.pos < len(s.items) {
		s.pos++
	}
	s.started = now
}

// Done reports whether every question has been answered.
func (s *Session) Done() bool {
	return len(s.attempts) >= len(s.items)
}

// Position returns the 1-based number of the current question and the total.
func (s *Session) Position() (int, int) {
	return min(s.pos+1, len(s.items)), len(s.items)
}

// Attempts returns the graded answers so far.
func (s *Session) Attempts() []Attempt {
	return append([]Attempt(nil), s.attempts...)
}

// Score returns the number of correct answers and the number of answers.
func (s *Session) Score() (correct, answered int) {
	for _, a := range s.attempts {
		if a.Correct {
			correct++
		}
	}
	return correct, len(s.attempts)
}

// CheckAnswer compares a student's answer with the stored solution.
// Numeric answers compare by value ("5.0" matches "5", "1/2" matches
// "0.5"); anything else compares case-insensitively.
func CheckAnswer(given, solution string) bool {
	given = strings.TrimSpace(given)
	solution = strings.TrimSpace(solution)
	if given == "" {
		return false
	}
	g, gok := new(big.Rat).SetString(strings.ReplaceAll(given, ",", ""))
	w, wok := new(big.Rat).SetString(strings.ReplaceAll(solution, ",", ""))
	if gok && wok {
		return g.Cmp(w) == 0
	}
	return strings.EqualFold(given, solution)
}
