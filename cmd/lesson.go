package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/progress"
	"github.com/abhisek/quizcraft/internal/store"
	"github.com/abhisek/quizcraft/internal/ui/components"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Inspect a student's lessons",
}

var lessonShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a lesson, or the class overview when --lesson is omitted",
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, _ := cmd.Flags().GetString("student")
		classID, _ := cmd.Flags().GetString("class")
		lessonID, _ := cmd.Flags().GetString("lesson")
		answers, _ := cmd.Flags().GetBool("answers")
		width, _ := cmd.Flags().GetInt("width")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		if lessonID == "" {
			p, err := e.store.LoadProgress(ctx, studentID, classID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no lessons for %s in class %s", studentID, classID)
			}
			if err != nil {
				return err
			}
			fmt.Println(components.ProgressView{Progress: p, Width: width}.View())
			return nil
		}

		key := lesson.Key{StudentID: studentID, ClassID: classID, LessonID: lessonID}
		rec, _, err := e.store.LoadLesson(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("lesson %s not found", key)
		}
		if err != nil {
			return err
		}
		fmt.Println(components.LessonView{Record: rec, ShowSolutions: answers, Width: width}.View())
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Record a student's answer to a question",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keyFromFlags(cmd)
		if err != nil {
			return err
		}
		questionID, _ := cmd.Flags().GetString("question")
		correct, _ := cmd.Flags().GetBool("correct")
		seconds, _ := cmd.Flags().GetInt("time")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		svc := progress.NewService(e.store, nil, e.log)
		if err := svc.SubmitAnswer(cmd.Context(), key, questionID, correct, seconds); err != nil {
			return err
		}
		fmt.Printf("Recorded %s for %s.\n", map[bool]string{true: "correct", false: "incorrect"}[correct], questionID)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Complete a lesson and unlock the next one",
	Long: "Complete marks the lesson done, unlocks the next lesson and personalizes it " +
		"with the student's theme when an LLM provider is configured.",
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
		ctx := cmd.Context()

		var sched progress.Scheduler
		runner, err := e.runner(ctx)
		if err != nil {
			e.log.Warn("personalization disabled", "error", err)
		} else {
			defer runner.Close()
			sched = runner
		}

		next, err := progress.NewService(e.store, sched, e.log).CompleteLesson(ctx, key.StudentID, key.ClassID, key.LessonID)
		if err != nil {
			return err
		}
		if next == "" {
			fmt.Println("Lesson completed. That was the last lesson of the class!")
			return nil
		}
		fmt.Printf("Lesson completed. Unlocked %s.\n", next)
		if runner != nil {
			runner.Wait()
		}
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank the students of a class, or of all classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		classID, _ := cmd.Flags().GetString("class")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		rows, err := progress.NewService(e.store, nil, e.log).Leaderboard(cmd.Context(), classID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No students yet.")
			return nil
		}
		fmt.Printf("%-4s  %-24s  %6s  %9s\n", "#", "Student", "Points", "Completed")
		for i, r := range rows {
			fmt.Printf("%-4d  %-24s  %6d  %9d\n", i+1, truncate(r.StudentID, 24), r.Points, r.Completed)
		}
		return nil
	},
}

func init() {
	studentFlags(lessonShowCmd)
	lessonShowCmd.Flags().StringP("lesson", "l", "", "Lesson id")
	lessonShowCmd.Flags().Bool("answers", false, "Show solutions")
	lessonShowCmd.Flags().Int("width", 72, "Card width")
	lessonCmd.AddCommand(lessonShowCmd)

	lessonFlags(answerCmd)
	answerCmd.Flags().StringP("question", "q", "", "Question id")
	answerCmd.Flags().Bool("correct", false, "Whether the answer was correct")
	answerCmd.Flags().IntP("time", "t", 0, "Seconds taken")
	_ = answerCmd.MarkFlagRequired("question")

	lessonFlags(completeCmd)

	leaderboardCmd.Flags().StringP("class", "c", "", "Class id (all classes when empty)")
}
