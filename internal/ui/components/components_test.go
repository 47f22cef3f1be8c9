package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/quizcraft/internal/lesson"
)

func sampleLesson() lesson.LessonRecord {
	yes := true
	feedback := "2 + 3 = 5"
	rating := 1000.0
	return lesson.LessonRecord{
		ID:       "Adding",
		Title:    "Adding Basics",
		Unlocked: true,
		Theme:    "Pokemon",
		QuestionsByLevel: map[lesson.Level][]lesson.QuestionSpec{
			lesson.Easy: {{
				ID: "add-1", Level: lesson.Easy, Content: "Pikachu has 2 berries.", Solution: "5",
				Hints: []string{"Count up."}, SolutionFeedback: &feedback, Correct: &yes, Rating: &rating,
			}},
		},
	}
}

func TestLessonView(t *testing.T) {
	out := LessonView{Record: sampleLesson(), Width: 60}.View()
	assert.Contains(t, out, "Adding Basics")
	assert.Contains(t, out, "Pokemon")
	assert.Contains(t, out, "Pikachu has 2 berries.")
	assert.Contains(t, out, "Count up.")
	assert.Contains(t, out, "rating 1000")
	assert.NotContains(t, out, "answer: 5")

	withAnswers := LessonView{Record: sampleLesson(), ShowSolutions: true, Width: 60}.View()
	assert.Contains(t, withAnswers, "answer: 5")
	assert.Contains(t, withAnswers, "2 + 3 = 5")
}

func TestProgressView(t *testing.T) {
	done := sampleLesson()
	done.Completed = true
	locked := lesson.LessonRecord{ID: "Subtracting", Title: "Lesson Subtracting"}
	p := lesson.ProgressRecord{
		ClassID:     "class-a",
		LessonOrder: []string{"Adding", "Subtracting"},
		Lessons:     map[string]lesson.LessonRecord{"Adding": done, "Subtracting": locked},
	}

	out := ProgressView{Progress: p, Width: 50}.View()
	assert.Contains(t, out, "50%")
	assert.Less(t, strings.Index(out, "Adding Basics"), strings.Index(out, "Lesson Subtracting"))
}

func TestProgressBar_Clamps(t *testing.T) {
	assert.Contains(t, NewProgressBar("", 1.5, true, 20).View(), "150%")
	assert.NotPanics(t, func() { NewProgressBar("x", -1, false, 2).View() })
}
