package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/personalize"
)

var personalizeCmd = &cobra.Command{
	Use:   "personalize",
	Short: "Rewrite a lesson around the student's theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keyFromFlags(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.personalizer(cmd.Context())
		if err != nil {
			return err
		}
		report, err := svc.Personalize(cmd.Context(), key)
		if err != nil {
			return explainPersonalizeError(err)
		}
		printReport(report)
		return nil
	},
}

func printReport(r personalize.Report) {
	fmt.Printf("Run:       %s\n", r.RunID)
	fmt.Printf("Lesson:    %s\n", r.Key)
	fmt.Printf("Theme:     %s\n", r.Theme)
	fmt.Printf("Attempts:  %d\n", r.Attempts)
	fmt.Printf("Duration:  %s\n", r.Duration.Round(time.Millisecond))
	fmt.Printf("Themed:    %d\n", len(r.Accepted))
	if len(r.Rejected) > 0 {
		fmt.Printf("Kept:      %d (%s)\n", len(r.Rejected), strings.Join(r.Rejected, ", "))
	}
}

func explainPersonalizeError(err error) error {
	var (
		die *lesson.DataIntegrityError
		efe *personalize.ExternalFormatError
		ese *personalize.ExternalServiceError
		rej *llm.ErrRequestRejected
	)
	switch {
	case errors.As(err, &die):
		return fmt.Errorf("cannot personalize: %w", err)
	case errors.As(err, &rej):
		return fmt.Errorf("generation service refused the request, check the API key and model: %w", err)
	case errors.As(err, &efe):
		return fmt.Errorf("generation kept returning malformed responses, try again later: %w", err)
	case errors.As(err, &ese):
		return fmt.Errorf("generation service unavailable, try again later: %w", err)
	}
	return err
}

// keyFromFlags reads --student, --class and --lesson.
func keyFromFlags(cmd *cobra.Command) (lesson.Key, error) {
	var k lesson.Key
	k.StudentID, _ = cmd.Flags().GetString("student")
	k.ClassID, _ = cmd.Flags().GetString("class")
	k.LessonID, _ = cmd.Flags().GetString("lesson")
	return k, k.Validate()
}

func lessonFlags(cmd *cobra.Command) {
	studentFlags(cmd)
	cmd.Flags().StringP("lesson", "l", "", "Lesson id")
	_ = cmd.MarkFlagRequired("lesson")
}

func init() {
	lessonFlags(personalizeCmd)
}
