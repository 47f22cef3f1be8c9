package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/lesson"
	"github.com/abhisek/quizcraft/internal/store"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change students' themes",
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available themes",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range lesson.AvailableThemes {
			fmt.Println(t)
		}
	},
}

var themeGetCmd = &cobra.Command{
	Use:   "get <student>",
	Short: "Show a student's theme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.store.LoadProfile(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("student %s has no profile", args[0])
		}
		if err != nil {
			return err
		}
		if p.Theme == "" {
			fmt.Println("(no theme)")
			return nil
		}
		fmt.Println(p.Theme)
		return nil
	},
}

var themeSetCmd = &cobra.Command{
	Use:   "set <student> <theme>",
	Short: "Set a student's theme",
	Long:  "Set a student's theme. Lessons already unlocked are re-themed by the worker's next sweep.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, ok := matchTheme(args[1])
		if !ok {
			return fmt.Errorf("unknown theme %q (see 'quizcraft theme list')", args[1])
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.store.SaveTheme(cmd.Context(), args[0], theme); err != nil {
			return err
		}
		fmt.Printf("Theme for %s set to %s.\n", args[0], theme)
		return nil
	},
}

// matchTheme finds an available theme case-insensitively.
func matchTheme(name string) (string, bool) {
	for _, t := range lesson.AvailableThemes {
		if strings.EqualFold(t, strings.TrimSpace(name)) {
			return t, true
		}
	}
	return "", false
}

func init() {
	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeGetCmd)
	themeCmd.AddCommand(themeSetCmd)
}
