package practice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// Recorder persists what happens during practice.
type Recorder interface {
	SubmitAnswer(ctx context.Context, key lesson.Key, questionID string, correct bool, timeTaken int) error
	CompleteLesson(ctx context.Context, studentID, classID, lessonID string) (string, error)
}

type phase int

const (
	phaseAsking phase = iota
	phaseFeedback
	phaseQuitConfirm
	phaseCompleting
	phaseDone
)

type answerSavedMsg struct{ Err error }

type lessonCompletedMsg struct {
	Next string
	Err  error
}

// Model is the interactive practice screen.
type Model struct {
	ctx      context.Context
	session  *Session
	recorder Recorder
	now      func() time.Time

	input      textinput.Model
	phase      phase
	resume     phase
	last       Attempt
	hintsShown int
	width      int
	pending    int // answers not yet saved

	// Completed is set once the lesson was marked complete; Next is the
	// lesson it unlocked, if any.
	Completed bool
	Next      string
	Err       error
}

var _ tea.Model = (*Model)(nil)

// NewModel creates the practice screen for s.
func NewModel(ctx context.Context, s *Session, rec Recorder) *Model {
	return &Model{
		ctx:      ctx,
		session:  s,
		recorder: rec,
		now:      time.Now,
		input:    newInput(),
		width:    72,
	}
}

func newInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Type your answer..."
	ti.CharLimit = 32
	ti.Focus()
	return ti
}

// Session returns the session being played.
func (m *Model) Session() *Session {
	return m.session
}

func (m *Model) Init() tea.Cmd {
	m.session.started = m.now()
	return m.input.Focus()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case answerSavedMsg:
		m.pending--
		if msg.Err != nil {
			m.Err = fmt.Errorf("save answer: %w", msg.Err)
			m.phase = phaseDone
			return m, nil
		}
		if m.phase == phaseCompleting && m.pending == 0 {
			return m, m.completeLesson()
		}
		return m, nil

	case lessonCompletedMsg:
		if msg.Err != nil {
			m.Err = fmt.Errorf("complete lesson: %w", msg.Err)
		} else {
			m.Completed = true
			m.Next = msg.Next
		}
		m.phase = phaseDone
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.phase == phaseAsking {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.phase {
	case phaseQuitConfirm:
		switch key {
		case "y", "Y":
			return m, tea.Quit
		case "n", "N", "esc":
			m.phase = m.resume
		}
		return m, nil

	case phaseFeedback:
		if key == "esc" {
			m.resume, m.phase = m.phase, phaseQuitConfirm
			return m, nil
		}
		return m.advance()

	case phaseCompleting:
		return m, nil

	case phaseDone:
		return m, tea.Quit
	}

	switch key {
	case "esc":
		m.resume, m.phase = m.phase, phaseQuitConfirm
		return m, nil
	case "tab":
		if item, ok := m.session.Current(); ok && m.hintsShown < len(item.Question.Hints) {
			m.hintsShown++
		}
		return m, nil
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	given := strings.TrimSpace(m.input.Value())
	if given == "" {
		return m, nil
	}
	a, ok := m.session.Answer(given, m.now())
	if !ok {
		return m, nil
	}
	m.last = a
	m.phase = phaseFeedback
	m.pending++
	return m, m.saveAnswer(a)
}

func (m *Model) saveAnswer(a Attempt) tea.Cmd {
	ctx, rec, key := m.ctx, m.recorder, m.session.Key
	return func() tea.Msg {
		return answerSavedMsg{Err: rec.SubmitAnswer(ctx, key, a.QuestionID, a.Correct, a.TimeTaken)}
	}
}

func (m *Model) advance() (tea.Model, tea.Cmd) {
	m.session.Next(m.now())
	m.hintsShown = 0
	m.input.Reset()

	if !m.session.Done() {
		m.phase = phaseAsking
		return m, m.input.Focus()
	}

	// The lesson is completed once the last answer is stored.
	m.phase = phaseCompleting
	if m.pending > 0 {
		return m, nil
	}
	return m, m.completeLesson()
}

func (m *Model) completeLesson() tea.Cmd {
	ctx, rec, key := m.ctx, m.recorder, m.session.Key
	return func() tea.Msg {
		next, err := rec.CompleteLesson(ctx, key.StudentID, key.ClassID, key.LessonID)
		return lessonCompletedMsg{Next: next, Err: err}
	}
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *Model) render() string {
	width := max(m.width-4, 40)
	var b strings.Builder

	header := theme.Title.Render(m.session.Title)
	if m.session.Theme != "" {
		header += "  " + theme.Subtitle.Render("theme: "+m.session.Theme)
	}
	b.WriteString(header + "\n")

	pos, total := m.session.Position()
	correct, answered := m.session.Score()
	done := float64(answered) / float64(total)
	b.WriteString(components.NewProgressBar(fmt.Sprintf("Q %d/%d", pos, total), done, false, width/2).View())
	b.WriteString("  " + theme.Correct.Render(fmt.Sprintf("✓ %d", correct)) + "\n\n")

	switch m.phase {
	case phaseQuitConfirm:
		b.WriteString(theme.Card.Width(width).Render("Stop practicing? Answers so far are saved.\n\n" +
			theme.Subtitle.Render("y: stop   n: keep going")))
	case phaseFeedback:
		b.WriteString(m.renderFeedback(width))
	case phaseCompleting:
		b.WriteString(theme.Subtitle.Render("Saving your progress..."))
	case phaseDone:
		b.WriteString(m.renderDone(width))
	default:
		b.WriteString(m.renderQuestion(width))
	}
	return b.String()
}

func (m *Model) renderQuestion(width int) string {
	item, ok := m.session.Current()
	if !ok {
		return ""
	}
	q := item.Question
	lines := []string{
		theme.LevelBadge(item.Level).Render(strings.ToUpper(item.Level.String())),
		theme.Body.Width(width - 4).Render(q.Content),
		"",
		m.input.View(),
	}
	for i := range m.hintsShown {
		lines = append(lines, theme.Hint.Render(fmt.Sprintf("hint %d: %s", i+1, q.Hints[i])))
	}
	hints := "enter: submit   esc: quit"
	if m.hintsShown < len(q.Hints) {
		hints = "tab: hint   " + hints
	}
	lines = append(lines, "", theme.Subtitle.Render(hints))
	return theme.Card.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderFeedback(width int) string {
	item, _ := m.session.Current()
	var lines []string
	if m.last.Correct {
		lines = append(lines, theme.Correct.Render("Correct!"))
	} else {
		lines = append(lines,
			theme.Incorrect.Render("Not quite."),
			theme.Body.Render(fmt.Sprintf("You answered %s. The answer is %s.", m.last.Given, item.Question.Solution)))
	}
	if fb := item.Question.SolutionFeedback; fb != nil && *fb != "" {
		lines = append(lines, theme.Feedback.Width(width-4).Render(*fb))
	}
	lines = append(lines, "", theme.Subtitle.Render(fmt.Sprintf("%ds   any key: continue", m.last.TimeTaken)))
	return theme.Card.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderDone(width int) string {
	if m.Err != nil {
		return theme.Incorrect.Render(m.Err.Error()) + "\n\n" + theme.Subtitle.Render("any key: exit")
	}
	correct, answered := m.session.Score()
	lines := []string{
		theme.Title.Render("Lesson complete!"),
		theme.Body.Render(fmt.Sprintf("You got %d of %d right.", correct, answered)),
	}
	if m.Next != "" {
		lines = append(lines, theme.Done.Render("Unlocked: "+m.Next))
	}
	lines = append(lines, "", theme.Subtitle.Render("any key: exit"))
	return theme.Card.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
