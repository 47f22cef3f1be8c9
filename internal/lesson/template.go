package lesson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const defaultHint = "No hint provided"

// Template is a class's lesson template: lessons in their authored order,
// each holding the question templates students are seeded from.
type Template struct {
	Lessons []TemplateLesson
}

// TemplateLesson is a single lesson of a Template.
type TemplateLesson struct {
	ID         string
	Title      string
	ContentRef string
	Questions  []QuestionTemplate
}

// QuestionTemplate is a question as authored by a teacher.
type QuestionTemplate struct {
	ID               string    `json:"id"`
	Level            Level     `json:"level"`
	Content          string    `json:"content"`
	Solution         textOrNum `json:"solution"`
	Hints            []string  `json:"hints"`
	SolutionFeedback *string   `json:"solution_feedback"`
	Title            string    `json:"title"`
}

// textOrNum accepts either a JSON string or a JSON number and keeps its text.
type textOrNum string

func (t *textOrNum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = textOrNum(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("solution must be a string or number: %w", err)
	}
	*t = textOrNum(n.String())
	return nil
}

// ParseTemplate decodes and normalizes a lesson template. The document is a
// JSON object mapping lesson id to its question list; key order is kept.
func ParseTemplate(data []byte) (*Template, error) {
	if err := ValidateTemplate(data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &DataIntegrityError{Op: "parse template", Reason: "read opening token", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &DataIntegrityError{Op: "parse template", Reason: "template must be a JSON object"}
	}

	tmpl := &Template{}
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &DataIntegrityError{Op: "parse template", Reason: "read lesson id", Err: err}
		}
		lessonID, _ := keyTok.(string)
		if seen[lessonID] {
			return nil, &DataIntegrityError{Op: "parse template", Reason: fmt.Sprintf("duplicate lesson %q", lessonID)}
		}
		seen[lessonID] = true

		var questions []QuestionTemplate
		if err := dec.Decode(&questions); err != nil {
			return nil, &DataIntegrityError{Op: "parse template", Reason: fmt.Sprintf("lesson %q", lessonID), Err: err}
		}
		tmpl.Lessons = append(tmpl.Lessons, normalizeLesson(lessonID, questions))
	}

	if len(tmpl.Lessons) == 0 {
		return nil, &DataIntegrityError{Op: "parse template", Reason: "template has no lessons"}
	}
	return tmpl, nil
}

// normalizeLesson fills in defaulted ids, hints and titles.
func normalizeLesson(lessonID string, questions []QuestionTemplate) TemplateLesson {
	tl := TemplateLesson{
		ID:         lessonID,
		Title:      "Lesson " + lessonID,
		ContentRef: "content/" + lessonID + ".html",
	}
	perLevel := make(map[Level]int)
	for _, q := range questions {
		perLevel[q.Level]++
		if q.ID == "" {
			q.ID = lessonID + "_" + q.Level.String() + "_" + strconv.Itoa(perLevel[q.Level])
		}
		if len(q.Hints) == 0 {
			q.Hints = []string{defaultHint}
		}
		if t := strings.TrimSpace(q.Title); t != "" && tl.Title == "Lesson "+lessonID {
			tl.Title = t
		}
		tl.Questions = append(tl.Questions, q)
	}
	return tl
}

// NewLessonRecord seeds a student's lesson from a template lesson. The
// template presentation is captured as each question's base.
func NewLessonRecord(tl TemplateLesson, unlocked bool) LessonRecord {
	rec := LessonRecord{
		ID:               tl.ID,
		Title:            tl.Title,
		ContentRef:       tl.ContentRef,
		Unlocked:         unlocked,
		QuestionsByLevel: make(map[Level][]QuestionSpec),
	}
	for _, qt := range tl.Questions {
		correct := false
		base := Presentation{
			Content:          qt.Content,
			Hints:            append([]string(nil), qt.Hints...),
			SolutionFeedback: cloneString(qt.SolutionFeedback),
		}
		q := QuestionSpec{
			ID:       qt.ID,
			Solution: string(qt.Solution),
			Level:    qt.Level,
			Correct:  &correct,
			Base:     &base,
		}
		q = q.WithPresentation(base)
		rec.QuestionsByLevel[qt.Level] = append(rec.QuestionsByLevel[qt.Level], q)
	}
	return rec
}
