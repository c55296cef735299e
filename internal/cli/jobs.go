package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskhub/internal/app"
	"taskhub/internal/jobs"
)

// JobNames are the jobs `jobs run` accepts.
var JobNames = []string{jobs.NameDailyReminder, jobs.NamePurgeNotifications, jobs.NameWeeklySummary}

func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect or run scheduled jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List job names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range JobNames {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "run <name>",
		Short:        "Run one job immediately",
		Args:         cobra.ExactArgs(1),
		ValidArgs:    JobNames,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !knownJob(args[0]) {
				return fmt.Errorf("%w: %q (want one of %v)", jobs.ErrUnknownJob, args[0], JobNames)
			}
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Scheduler.RunOnce(ctx, args[0])
		},
	})

	return cmd
}

func knownJob(name string) bool {
	for _, n := range JobNames {
		if n == name {
			return true
		}
	}
	return false
}
