package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/progress"
)

var seedCmd = &cobra.Command{
	Use:   "seed <template.json>",
	Short: "Create a student's lessons in a class from a template",
	Long: "Seed replaces the student's progress in the class with fresh, rated " +
		"lessons from the template. Only the first lesson is unlocked. Pass " +
		"--personalize to theme it right away. Without --class a new class id is generated.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, _ := cmd.Flags().GetString("student")
		classID, _ := cmd.Flags().GetString("class")
		personalizeFirst, _ := cmd.Flags().GetBool("personalize")
		if classID == "" {
			classID = uuid.NewString()
		}

		tmpl, err := readTemplate(args[0])
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		p, err := progress.NewService(e.store, nil, e.log).Seed(ctx, studentID, classID, tmpl)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d lessons for %s in class %s.\n", len(p.LessonOrder), studentID, classID)

		if !personalizeFirst {
			return nil
		}
		svc, err := e.personalizer(ctx)
		if err != nil {
			return err
		}
		key := lesson.Key{StudentID: studentID, ClassID: classID, LessonID: p.LessonOrder[0]}
		report, err := svc.Personalize(ctx, key)
		if err != nil {
			return fmt.Errorf("personalize %s: %w", key, err)
		}
		printReport(report)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("student", "s", "", "Student id")
	seedCmd.Flags().StringP("class", "c", "", "Class id (generated when empty)")
	seedCmd.Flags().Bool("personalize", false, "Personalize the first lesson after seeding")
	_ = seedCmd.MarkFlagRequired("student")
}
