package cmd

import (
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/practice"
	"github.com/abhisek/quizcraft/internal/progress"
	"github.com/abhisek/quizcraft/internal/store"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice a lesson interactively",
	Long: "Practice asks the lesson's questions from easy to hard, records each answer " +
		"with the time taken and completes the lesson after the last question.",
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

		rec, _, err := e.store.LoadLesson(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("lesson %s not found", key)
		}
		if err != nil {
			return err
		}
		sess, err := practice.NewSession(key, rec, time.Now())
		if err != nil {
			return err
		}

		// Personalization of the unlocked lesson starts once the screen is
		// closed so its output does not draw over the session.
		held := &heldScheduler{}
		svc := progress.NewService(e.store, held, nil)

		m := practice.NewModel(ctx, sess, svc)
		if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("practice: %w", err)
		}
		if m.Err != nil {
			return m.Err
		}

		correct, answered := sess.Score()
		fmt.Printf("%d of %d correct.\n", correct, answered)
		if !m.Completed {
			fmt.Println("Stopped early. Answers so far are saved.")
			return nil
		}
		if m.Next == "" {
			fmt.Println("Lesson completed. That was the last lesson of the class!")
			return nil
		}
		fmt.Printf("Lesson completed. Unlocked %s.\n", m.Next)

		runner, err := e.runner(ctx)
		if err != nil {
			e.log.Warn("personalization disabled", "error", err)
			return nil
		}
		defer runner.Close()
		for _, k := range held.keys {
			runner.Submit(k)
		}
		runner.Wait()
		return nil
	},
}

// heldScheduler keeps submitted lessons until they can be handed to a runner.
type heldScheduler struct {
	keys []lesson.Key
}

func (h *heldScheduler) Submit(key lesson.Key) bool {
	h.keys = append(h.keys, key)
	return true
}

func init() {
	lessonFlags(practiceCmd)
}
