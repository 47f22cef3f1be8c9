package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// LessonView renders a single lesson record as question cards.
type LessonView struct {
	Record        lesson.LessonRecord
	ShowSolutions bool
	Width         int
}

// View renders the lesson.
func (v LessonView) View() string {
	rec := v.Record
	var out []string

	header := theme.Title.Render(rec.Title)
	if rec.Theme != "" {
		header += "  " + theme.Subtitle.Render("theme: "+rec.Theme)
	}
	out = append(out, header, theme.Subtitle.Render(lessonStatus(rec)), "")

	width := max(v.Width, 40)
	_ = rec.Each(func(lvl lesson.Level, idx int, q *lesson.QuestionSpec) error {
		out = append(out, theme.Card.Width(width).Render(v.question(lvl, idx, q)))
		return nil
	})
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func (v LessonView) question(lvl lesson.Level, idx int, q *lesson.QuestionSpec) string {
	var lines []string

	head := theme.LevelBadge(lvl).Render(fmt.Sprintf("%s #%d", strings.ToUpper(lvl.String()), idx+1))
	head += "  " + theme.Subtitle.Render(q.ID)
	if q.Rating != nil {
		head += "  " + theme.Subtitle.Render(fmt.Sprintf("rating %.0f", *q.Rating))
	}
	if q.Correct != nil && *q.Correct {
		head += "  " + theme.Correct.Render("✓")
	}
	lines = append(lines, head, theme.Body.Render(q.Content))

	for i, h := range q.Hints {
		lines = append(lines, theme.Hint.Render(fmt.Sprintf("hint %d: %s", i+1, h)))
	}
	if v.ShowSolutions {
		lines = append(lines, theme.Correct.Render("answer: "+q.Solution))
		if q.SolutionFeedback != nil {
			lines = append(lines, theme.Feedback.Render(*q.SolutionFeedback))
		}
	}
	return strings.Join(lines, "\n")
}

func lessonStatus(rec lesson.LessonRecord) string {
	switch {
	case rec.Completed:
		return "completed"
	case rec.Unlocked:
		return "unlocked"
	default:
		return "locked"
	}
}

// ProgressView renders a student's lessons in order with a completion bar.
type ProgressView struct {
	Progress lesson.ProgressRecord
	Width    int
}

// View renders the progress overview.
func (v ProgressView) View() string {
	p := v.Progress
	done := 0
	var rows []string
	for _, id := range p.LessonOrder {
		rec := p.Lessons[id]
		mark, style := "○", theme.Locked
		switch {
		case rec.Completed:
			mark, style = "●", theme.Done
			done++
		case rec.Unlocked:
			mark, style = "◐", theme.Body
		}
		row := style.Render(fmt.Sprintf("%s %s", mark, rec.Title))
		if rec.Theme != "" {
			row += "  " + theme.Subtitle.Render(rec.Theme)
		}
		rows = append(rows, row)
	}

	pct := 0.0
	if len(p.LessonOrder) > 0 {
		pct = float64(done) / float64(len(p.LessonOrder))
	}
	bar := NewProgressBar(p.ClassID, pct, true, max(v.Width, 30)).View()
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{bar, ""}, rows...)...)
}
