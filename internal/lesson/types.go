package lesson

import (
	"fmt"
	"strings"
	"time"
)

// Level is the difficulty level a question belongs to.
type Level int

const (
	Easy Level = iota
	Medium
	Hard
)

// Levels lists every level in canonical enumeration order.
var Levels = []Level{Easy, Medium, Hard}

func (l Level) String() string {
	switch l {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l is one of the enumerated levels.
func (l Level) Valid() bool {
	return l >= Easy && l <= Hard
}

// ParseLevel converts the text form of a level ("easy", "Medium", ...).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return 0, &DataIntegrityError{Op: "parse level", Reason: fmt.Sprintf("unknown level %q", s)}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Presentation is the learner-facing part of a question. It is the only part
// personalization is allowed to rewrite.
type Presentation struct {
	Content          string   `json:"content"`
	Hints            []string `json:"hints"`
	SolutionFeedback *string  `json:"solution_feedback"`
}

// QuestionSpec is one question inside a student's lesson.
type QuestionSpec struct {
	ID               string   `json:"id"`
	Content          string   `json:"content"`
	Solution         string   `json:"solution"`
	Hints            []string `json:"hints"`
	SolutionFeedback *string  `json:"solution_feedback"`
	Level            Level    `json:"level"`
	Correct          *bool    `json:"correct"`
	TimeTaken        *int     `json:"time_taken"`
	Rating           *float64 `json:"rating"`

	// Base is the template presentation captured when the record was seeded.
	Base *Presentation `json:"base,omitempty"`
}

// Presentation returns the question's current learner-facing fields.
func (q QuestionSpec) Presentation() Presentation {
	return Presentation{
		Content:          q.Content,
		Hints:            append([]string(nil), q.Hints...),
		SolutionFeedback: cloneString(q.SolutionFeedback),
	}
}

// Template returns the template presentation of the question. Questions
// without a captured base fall back to their current fields.
func (q QuestionSpec) Template() Presentation {
	if q.Base != nil {
		return Presentation{
			Content:          q.Base.Content,
			Hints:            append([]string(nil), q.Base.Hints...),
			SolutionFeedback: cloneString(q.Base.SolutionFeedback),
		}
	}
	return q.Presentation()
}

// WithPresentation returns a copy of q with p applied. Solution, progress and
// rating fields are never touched.
func (q QuestionSpec) WithPresentation(p Presentation) QuestionSpec {
	q.Content = p.Content
	q.Hints = append([]string(nil), p.Hints...)
	q.SolutionFeedback = cloneString(p.SolutionFeedback)
	return q
}

// LessonRecord is a student's copy of one lesson.
type LessonRecord struct {
	ID               string                   `json:"id"`
	Title            string                   `json:"title"`
	ContentRef       string                   `json:"content"`
	Completed        bool                     `json:"completed"`
	Unlocked         bool                     `json:"unlocked"`
	QuestionsByLevel map[Level][]QuestionSpec `json:"questions"`

	// Theme is the theme last applied by personalization, empty for the
	// template state.
	Theme          string     `json:"theme,omitempty"`
	PersonalizedAt *time.Time `json:"personalized_at,omitempty"`
}

// Each calls fn for every question in canonical level order, then slice
// order. It stops at the first error.
func (r *LessonRecord) Each(fn func(level Level, idx int, q *QuestionSpec) error) error {
	for _, lvl := range Levels {
		qs := r.QuestionsByLevel[lvl]
		for i := range qs {
			if err := fn(lvl, i, &qs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// QuestionCount returns the number of questions across all levels.
func (r LessonRecord) QuestionCount() int {
	n := 0
	for _, qs := range r.QuestionsByLevel {
		n += len(qs)
	}
	return n
}

// Find returns a pointer to the question with the given id.
func (r *LessonRecord) Find(id string) (*QuestionSpec, bool) {
	var found *QuestionSpec
	_ = r.Each(func(_ Level, _ int, q *QuestionSpec) error {
		if found == nil && q.ID == id {
			found = q
		}
		return nil
	})
	return found, found != nil
}

// Clone returns a deep copy of r.
func (r LessonRecord) Clone() LessonRecord {
	out := r
	if r.PersonalizedAt != nil {
		t := *r.PersonalizedAt
		out.PersonalizedAt = &t
	}
	out.QuestionsByLevel = make(map[Level][]QuestionSpec, len(r.QuestionsByLevel))
	for lvl, qs := range r.QuestionsByLevel {
		cp := make([]QuestionSpec, len(qs))
		for i, q := range qs {
			cp[i] = q.clone()
		}
		out.QuestionsByLevel[lvl] = cp
	}
	return out
}

// Validate checks structural invariants of the record.
func (r LessonRecord) Validate() error {
	if r.ID == "" {
		return &DataIntegrityError{Op: "validate lesson", Reason: "missing lesson id"}
	}
	seen := make(map[string]bool)
	for lvl, qs := range r.QuestionsByLevel {
		if !lvl.Valid() {
			return &DataIntegrityError{Op: "validate lesson", Reason: fmt.Sprintf("lesson %s has invalid level %d", r.ID, int(lvl))}
		}
		for _, q := range qs {
			if q.ID == "" {
				return &DataIntegrityError{Op: "validate lesson", Reason: fmt.Sprintf("lesson %s has a question without id", r.ID)}
			}
			if seen[q.ID] {
				return &DataIntegrityError{Op: "validate lesson", Reason: fmt.Sprintf("lesson %s has duplicate question id %s", r.ID, q.ID)}
			}
			seen[q.ID] = true
		}
	}
	return nil
}

// ProgressRecord is everything a student has in one class.
type ProgressRecord struct {
	StudentID   string                  `json:"student_id"`
	ClassID     string                  `json:"class_id"`
	LessonOrder []string                `json:"lesson_order"`
	Lessons     map[string]LessonRecord `json:"lessons"`
}

// Key identifies a single lesson of a single student in a single class.
type Key struct {
	StudentID string
	ClassID   string
	LessonID  string
}

func (k Key) String() string {
	return k.StudentID + "/" + k.ClassID + "/" + k.LessonID
}

// Validate reports a DataIntegrityError for incomplete keys.
func (k Key) Validate() error {
	switch {
	case k.StudentID == "":
		return &DataIntegrityError{Op: "validate key", Reason: "missing student id"}
	case k.ClassID == "":
		return &DataIntegrityError{Op: "validate key", Reason: "missing class id"}
	case k.LessonID == "":
		return &DataIntegrityError{Op: "validate key", Reason: "missing lesson id"}
	}
	return nil
}

// Profile is the slice of a student's profile this system reads.
type Profile struct {
	StudentID string `json:"student_id"`
	Theme     string `json:"theme"`
}

// AvailableThemes are the themes offered to students.
var AvailableThemes = []string{
	"Soccer",
	"Hockey",
	"Toys",
	"Pokemon",
	"Video Games",
	"Cars",
	"Fairies",
	"Horses",
	"Dolls",
}

func (q QuestionSpec) clone() QuestionSpec {
	out := q
	out.Hints = append([]string(nil), q.Hints...)
	out.SolutionFeedback = cloneString(q.SolutionFeedback)
	if q.Correct != nil {
		v := *q.Correct
		out.Correct = &v
	}
	if q.TimeTaken != nil {
		v := *q.TimeTaken
		out.TimeTaken = &v
	}
	if q.Rating != nil {
		v := *q.Rating
		out.Rating = &v
	}
	if q.Base != nil {
		b := Presentation{
			Content:          q.Base.Content,
			Hints:            append([]string(nil), q.Base.Hints...),
			SolutionFeedback: cloneString(q.Base.SolutionFeedback),
		}
		out.Base = &b
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
