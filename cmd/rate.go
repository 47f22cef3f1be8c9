package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/difficulty"
	"github.com/abhisek/quizcraft/internal/lesson"
)

var rateCmd = &cobra.Command{
	Use:   "rate <template.json>",
	Short: "Rate every question of a lesson template by difficulty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := readTemplate(args[0])
		if err != nil {
			return err
		}

		records := make([]lesson.LessonRecord, 0, len(tmpl.Lessons))
		for _, tl := range tmpl.Lessons {
			records = append(records, lesson.NewLessonRecord(tl, false))
		}
		ratings, err := difficulty.RateLessons(cmd.Context(), records)
		if err != nil {
			return fmt.Errorf("rate lessons: %w", err)
		}

		for _, rec := range records {
			fmt.Println(rec.Title)
			fmt.Println(strings.Repeat("─", 72))
			_ = rec.Each(func(lvl lesson.Level, _ int, q *lesson.QuestionSpec) error {
				fmt.Printf("%-24s  %-6s  %7.1f  %s\n",
					truncate(q.ID, 24), lvl, ratings[rec.ID][q.ID], q.Content)
				return nil
			})
			fmt.Println()
		}
		return nil
	},
}

func readTemplate(path string) (*lesson.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tmpl, err := lesson.ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return tmpl, nil
}
