package personalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/abhisek/quizcraft/internal/llm"
)

// LinesPerQuestion is the size of one response block in lines mode.
const LinesPerQuestion = 5

var blockLabels = [LinesPerQuestion]string{"question", "hint", "hint", "solution", "numeric solution"}

// ParseLines parses a lines-mode response for n questions. Blank and
// whitespace-only lines are dropped before counting.
func ParseLines(text string, n int) ([]GenerationResult, error) {
	type numbered struct {
		no   int
		text string
	}
	var lines []numbered
	for i, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, numbered{no: i + 1, text: l})
	}

	if want := LinesPerQuestion * n; len(lines) != want {
		return nil, &FormatValidationError{Want: want, Got: len(lines)}
	}

	out := make([]GenerationResult, n)
	for k := range n {
		var values [LinesPerQuestion]string
		for j := range LinesPerQuestion {
			line := lines[k*LinesPerQuestion+j]
			label, value, ok := strings.Cut(line.text, ":")
			if !ok {
				return nil, &FormatValidationError{Line: line.no, Reason: fmt.Sprintf("missing %q label", blockLabels[j])}
			}
			if got := normalizeLabel(label); got != blockLabels[j] {
				return nil, &FormatValidationError{Line: line.no, Reason: fmt.Sprintf("want label %q, got %q", blockLabels[j], got)}
			}
			values[j] = strings.TrimSpace(closeEmphasis(label, value))
		}
		out[k] = GenerationResult{
			ThemedContent:   values[0],
			Hint1:           values[1],
			Hint2:           values[2],
			Explanation:     values[3],
			NumericSolution: values[4],
		}
	}
	return out, nil
}

var labelOrdinal = regexp.MustCompile(`^(question|hint) ?\d+$`)

// normalizeLabel lowercases a label and strips list and emphasis markup
// some models add around it. Numbered labels such as "Hint 2" match their
// plain form.
func normalizeLabel(label string) string {
	label = strings.Trim(label, " \t*_#->")
	label = strings.ToLower(label)
	label = strings.Join(strings.Fields(label), " ")
	if m := labelOrdinal.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return label
}

// closeEmphasis drops the closing markup of "**Label:** value" from value.
// Only the exact opening run is removed, so a leading blank marker in the
// value survives.
func closeEmphasis(label, value string) string {
	label = strings.TrimLeft(label, " \t->#")
	open := label[:len(label)-len(strings.TrimLeft(label, "*_"))]
	if open == "" {
		return value
	}
	return strings.TrimPrefix(value, open)
}

type structuredItem struct {
	Index int `json:"index"`
	GenerationResult
}

type structuredResponse struct {
	Items []structuredItem `json:"items"`
}

// ResponseSchema is the structured-mode contract.
var ResponseSchema = &llm.Schema{
	Name:        "themed-questions",
	Description: "Themed rewrites of math problems, one item per input problem.",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"index":            map[string]any{"type": "integer", "minimum": 0},
						"question":         map[string]any{"type": "string"},
						"hint1":            map[string]any{"type": "string"},
						"hint2":            map[string]any{"type": "string"},
						"solution":         map[string]any{"type": "string"},
						"numeric_solution": map[string]any{"type": "string"},
					},
					"required": []any{"index", "question", "hint1", "hint2", "solution", "numeric_solution"},
				},
			},
		},
		"required": []any{"items"},
	},
}

// ParseStructured parses a structured-mode response for n questions. Items
// are bound by their index, which must cover 0..n-1 exactly once.
func ParseStructured(text string, n int) ([]GenerationResult, error) {
	if err := llm.ValidateJSON(ResponseSchema, text); err != nil {
		return nil, &FormatValidationError{Reason: err.Error()}
	}

	var resp structuredResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, &FormatValidationError{Reason: err.Error()}
	}
	if len(resp.Items) != n {
		return nil, &FormatValidationError{Want: n, Got: len(resp.Items)}
	}

	out := make([]GenerationResult, n)
	seen := make([]bool, n)
	for _, item := range resp.Items {
		if item.Index < 0 || item.Index >= n {
			return nil, &FormatValidationError{Reason: fmt.Sprintf("index %d out of range [0,%d)", item.Index, n)}
		}
		if seen[item.Index] {
			return nil, &FormatValidationError{Reason: fmt.Sprintf("duplicate index %d", item.Index)}
		}
		seen[item.Index] = true
		r := item.GenerationResult
		r.ThemedContent = strings.TrimSpace(r.ThemedContent)
		r.Hint1 = strings.TrimSpace(r.Hint1)
		r.Hint2 = strings.TrimSpace(r.Hint2)
		r.Explanation = strings.TrimSpace(r.Explanation)
		r.NumericSolution = strings.TrimSpace(r.NumericSolution)
		out[item.Index] = r
	}
	return out, nil
}
