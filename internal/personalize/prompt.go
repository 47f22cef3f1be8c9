package personalize

import (
	"fmt"
	"strings"
)

const linesInstruction = `For each practice problem you generate, use the following theme: %s. ` +
	`Questions and hints should be understandable to grade-school age children. ` +
	`Responses must have exactly the following format: ` +
	"Question: <generated question>\nHint: <generated hint>\nHint: <generated hint>\n" +
	"Solution: <generated step-by-step solution>\nNumeric Solution: <numeric value of solution>\n" +
	`The second hint should be more detailed than the first. ` +
	`Produce exactly one block per input problem, in input order. ` +
	`Don't include blank lines between the questions.`

const structuredInstruction = `For each practice problem you generate, use the following theme: %s. ` +
	`Questions and hints should be understandable to grade-school age children. ` +
	`Return one item per input problem. Each item must echo the problem's index ` +
	`and give the themed question, two hints where the second is more detailed ` +
	`than the first, a step-by-step solution, and the numeric value of the solution.`

// BuildPrompt returns the system instruction and user prompt for req.
func BuildPrompt(req GenerationRequest, mode Mode) (system, user string) {
	var b strings.Builder
	b.WriteString("For each of the following math problems, generate a practice word problem, 2 hints, and a detailed step-by-step solution.\n")

	if mode == ModeStructured {
		for i, q := range req.BaseQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i, q)
		}
		return fmt.Sprintf(structuredInstruction, req.Theme), b.String()
	}

	for _, q := range req.BaseQuestions {
		b.WriteString(q)
		b.WriteString("\n")
	}
	return fmt.Sprintf(linesInstruction, req.Theme), b.String()
}
