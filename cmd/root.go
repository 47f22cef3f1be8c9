package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quizcraft",
	Short: "Themed math practice lessons",
	Long: "Quizcraft rates math practice questions by difficulty and rewrites them " +
		"around each student's favourite theme.",
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZCRAFT_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides QUIZCRAFT_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log output: dev or prod")

	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(personalizeCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
