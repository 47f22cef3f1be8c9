package personalize

import (
	"time"

	"github.com/abhisek/quizcraft/internal/lesson"
)

// GenerationRequest is what the service is asked to theme. The position of
// each base question is the only correlation key to the response.
type GenerationRequest struct {
	Theme         string
	BaseQuestions []string
}

// GenerationResult is the themed rendition of one base question.
type GenerationResult struct {
	ThemedContent   string `json:"question"`
	Hint1           string `json:"hint1"`
	Hint2           string `json:"hint2"`
	Explanation     string `json:"solution"`
	NumericSolution string `json:"numeric_solution"`
}

// Mode selects the response contract.
type Mode string

const (
	// ModeLines asks for five labelled lines per question.
	ModeLines Mode = "lines"
	// ModeStructured asks for JSON items that carry their input index.
	ModeStructured Mode = "structured"
)

// Report summarises one personalization run.
type Report struct {
	RunID    string
	Key      lesson.Key
	Theme    string
	Attempts int
	Accepted []string
	Rejected []string
	Duration time.Duration
}
