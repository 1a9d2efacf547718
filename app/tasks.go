package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkp/pkplib/internal/logger"
)

func init() { //nolint: gochecknoinits
	tasksCmd.AddCommand(tasksRunCmd, tasksListCmd)
	rootCmd.AddCommand(tasksCmd)
}

var (
	tasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and run the scheduled tasks",
	}

	tasksRunCmd = &cobra.Command{
		Use:   "run [name]",
		Short: "Run the due tasks once, or the named task regardless of its schedule",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := openServices()
			if err != nil {
				return err
			}

			defer func() {
				_ = services.Close()
			}()

			sched, err := services.Scheduler()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			if err = sched.Sync(ctx); err != nil {
				return err
			}

			log := logger.Component("tasks")

			if len(args) == 1 {
				log.Info().Str("task", args[0]).Msg("running task")

				return sched.RunOne(ctx, args[0])
			}

			n, err := sched.RunDue(ctx)
			log.Info().Int("run", n).Msg("due tasks finished")

			return err
		},
	}

	tasksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the registry entries with their last and next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := openServices()
			if err != nil {
				return err
			}

			defer func() {
				_ = services.Close()
			}()

			sched, err := services.Scheduler()
			if err != nil {
				return err
			}

			lastRuns, err := sched.LastRuns(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			for _, e := range sched.Entries() {
				last, next := "never", "now"

				if t, ok := lastRuns[e.Name]; ok {
					last = t.Format(time.DateTime)
					next = e.Next(t).Format(time.DateTime)
				}

				_, _ = fmt.Fprintf(out, "%-20s last: %-19s next: %-19s %s\n", e.Name, last, next, e.Description)
			}

			return nil
		},
	}
)
