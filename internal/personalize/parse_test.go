package personalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pokemonBlock = `Question: Pikachu caught 2 berries and then 3 more. How many berries does Pikachu have?
Hint: Start with the berries Pikachu caught first.
Hint: Count up 3 from 2.
Solution: 2 berries plus 3 berries makes 5 berries.
Numeric Solution: 5`

func TestParseLines_SingleBlock(t *testing.T) {
	got, err := ParseLines(pokemonBlock, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "Pikachu caught 2 berries and then 3 more. How many berries does Pikachu have?", got[0].ThemedContent)
	assert.Equal(t, "Start with the berries Pikachu caught first.", got[0].Hint1)
	assert.Equal(t, "Count up 3 from 2.", got[0].Hint2)
	assert.Equal(t, "2 berries plus 3 berries makes 5 berries.", got[0].Explanation)
	assert.Equal(t, "5", got[0].NumericSolution)
}

func TestParseLines_DropsBlankLines(t *testing.T) {
	text := "\n\n" + strings.ReplaceAll(pokemonBlock, "\n", "\n   \n") + "\n\n"
	got, err := ParseLines(text, 1)
	require.NoError(t, err)
	assert.Equal(t, "5", got[0].NumericSolution)
}

func TestParseLines_KeepsPositionalOrder(t *testing.T) {
	text := pokemonBlock + "\n" + strings.ReplaceAll(pokemonBlock, "Numeric Solution: 5", "Numeric Solution: 7")
	got, err := ParseLines(text, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "5", got[0].NumericSolution)
	assert.Equal(t, "7", got[1].NumericSolution)
}

func TestParseLines_ValueAfterFirstColon(t *testing.T) {
	text := strings.Replace(pokemonBlock, "Solution: 2 berries", "Solution: Time: 2 berries", 1)
	got, err := ParseLines(text, 1)
	require.NoError(t, err)
	assert.Equal(t, "Time: 2 berries plus 3 berries makes 5 berries.", got[0].Explanation)
}

func TestParseLines_LenientLabels(t *testing.T) {
	text := "**Question:** a\n- hint: b\nHINT : c\n## Solution: d\nnumeric   solution: 5"
	got, err := ParseLines(text, 1)
	require.NoError(t, err)
	assert.Equal(t, GenerationResult{ThemedContent: "a", Hint1: "b", Hint2: "c", Explanation: "d", NumericSolution: "5"}, got[0])
}

func TestParseLines_NumberedLabels(t *testing.T) {
	text := "Question 1: a\nHint 1: b\nHint 2: c\nSolution: d\nNumeric Solution: 5"
	got, err := ParseLines(text, 1)
	require.NoError(t, err)
	assert.Equal(t, GenerationResult{ThemedContent: "a", Hint1: "b", Hint2: "c", Explanation: "d", NumericSolution: "5"}, got[0])
}

func TestParseLines_EmphasisKeepsBlankMarker(t *testing.T) {
	text := "__Question:__ _ + 3 = 5\n**Hint:** b\nHint: c\nSolution: d\nNumeric Solution: 2"
	got, err := ParseLines(text, 1)
	require.NoError(t, err)
	assert.Equal(t, "_ + 3 = 5", got[0].ThemedContent)
	assert.Equal(t, "b", got[0].Hint1)
}

func TestParseLines_Rejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
	}{
		{"too few lines", "Question: a\nHint: b\nHint: c\nSolution: d", 1},
		{"too many lines", pokemonBlock + "\nHint: extra", 1},
		{"wrong count for two questions", pokemonBlock, 2},
		{"missing colon", strings.Replace(pokemonBlock, "Hint: Count", "Hint Count", 1), 1},
		{"wrong label", strings.Replace(pokemonBlock, "Numeric Solution:", "Answer:", 1), 1},
		{"labels out of order", "Hint: b\nQuestion: a\nHint: c\nSolution: d\nNumeric Solution: 5", 1},
		{"empty response", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLines(tt.text, tt.n)
			var fe *FormatValidationError
			require.True(t, errors.As(err, &fe), "want FormatValidationError, got %v", err)
		})
	}
}

func TestParseLines_CountError(t *testing.T) {
	_, err := ParseLines(pokemonBlock, 2)
	var fe *FormatValidationError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 10, fe.Want)
	assert.Equal(t, 5, fe.Got)
}

func TestParseStructured_BindsByIndex(t *testing.T) {
	text := `{"items": [
		{"index": 1, "question": "second", "hint1": "h", "hint2": "hh", "solution": "s", "numeric_solution": " 7 "},
		{"index": 0, "question": "first", "hint1": "h", "hint2": "hh", "solution": "s", "numeric_solution": "5"}
	]}`
	got, err := ParseStructured(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "first", got[0].ThemedContent)
	assert.Equal(t, "5", got[0].NumericSolution)
	assert.Equal(t, "second", got[1].ThemedContent)
	assert.Equal(t, "7", got[1].NumericSolution)
}

func TestParseStructured_Rejects(t *testing.T) {
	item := func(idx string) string {
		return `{"index": ` + idx + `, "question": "q", "hint1": "h", "hint2": "hh", "solution": "s", "numeric_solution": "5"}`
	}
	tests := []struct {
		name string
		text string
	}{
		{"not json", "Question: a"},
		{"wrong count", `{"items": [` + item("0") + `]}`},
		{"duplicate index", `{"items": [` + item("0") + `,` + item("0") + `]}`},
		{"out of range", `{"items": [` + item("0") + `,` + item("2") + `]}`},
		{"missing field", `{"items": [{"index": 0}, ` + item("1") + `]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStructured(tt.text, 2)
			var fe *FormatValidationError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := GenerationRequest{Theme: "Pokemon", BaseQuestions: []string{"2 + 3 =", "9 - 4 ="}}

	system, user := BuildPrompt(req, ModeLines)
	assert.Contains(t, system, "Pokemon")
	assert.Contains(t, system, "Numeric Solution:")
	assert.True(t, strings.HasSuffix(user, "2 + 3 =\n9 - 4 =\n"))

	system, user = BuildPrompt(req, ModeStructured)
	assert.Contains(t, system, "index")
	assert.Contains(t, user, "0. 2 + 3 =\n1. 9 - 4 =\n")
}
