package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/scheduler"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Keep lessons personalized in the background",
	Long: "Worker periodically finds unlocked lessons whose theme is behind the " +
		"student's profile (failed runs, theme changes) and personalizes them. " +
		"It runs until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		runner, err := e.runner(ctx)
		if err != nil {
			return err
		}
		defer runner.Close()

		sweeper := scheduler.New(e.store, runner, e.cfg.SweepInterval, e.log)
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
		defer sweeper.Stop()

		fmt.Printf("Worker running (sweep every %s, %d workers). Press Ctrl+C to stop.\n",
			e.cfg.SweepInterval, e.cfg.Runner.Concurrency)
		<-ctx.Done()
		e.log.Info("worker stopping", "in_flight", runner.InFlight())
		return nil
	},
}
