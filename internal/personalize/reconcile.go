package personalize

import (
	"github.com/abhisek/quizcraft/internal/lesson"
)

// Decision is the reconciliation outcome for one question.
type Decision struct {
	QuestionID string
	Accepted   bool
	Generated  string
	Expected   string
}

// Reconcile applies results to a copy of rec by input position. A result is
// adopted only when its numeric solution equals the stored solution exactly;
// otherwise the question is restored to its template presentation. Solutions,
// progress fields and ratings are never touched.
func Reconcile(rec lesson.LessonRecord, results []GenerationResult) (lesson.LessonRecord, []Decision) {
	out := rec.Clone()
	decisions := make([]Decision, 0, len(results))

	pos := 0
	_ = out.Each(func(_ lesson.Level, _ int, q *lesson.QuestionSpec) error {
		if pos >= len(results) {
			return nil
		}
		r := results[pos]
		pos++

		d := Decision{QuestionID: q.ID, Generated: r.NumericSolution, Expected: q.Solution}
		if r.NumericSolution == q.Solution {
			d.Accepted = true
			explanation := r.Explanation
			*q = q.WithPresentation(lesson.Presentation{
				Content:          r.ThemedContent,
				Hints:            []string{r.Hint1, r.Hint2},
				SolutionFeedback: &explanation,
			})
		} else {
			*q = q.WithPresentation(q.Template())
		}
		decisions = append(decisions, d)
		return nil
	})
	return out, decisions
}

// baseQuestions lists the template content of every question in canonical
// order. Re-personalizing always starts from the template so themes never
// stack.
func baseQuestions(rec *lesson.LessonRecord) []string {
	var out []string
	_ = rec.Each(func(_ lesson.Level, _ int, q *lesson.QuestionSpec) error {
		out = append(out, q.Template().Content)
		return nil
	})
	return out
}

// mergePresentation copies the presentation fields and theme of themed onto
// latest, leaving everything else in latest as it is.
func mergePresentation(latest, themed lesson.LessonRecord) lesson.LessonRecord {
	out := latest.Clone()
	_ = out.Each(func(_ lesson.Level, _ int, q *lesson.QuestionSpec) error {
		if src, ok := themed.Find(q.ID); ok {
			*q = q.WithPresentation(src.Presentation())
		}
		return nil
	})
	out.Theme = themed.Theme
	out.PersonalizedAt = themed.PersonalizedAt
	return out
}
