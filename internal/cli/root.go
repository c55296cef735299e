package cli

import (
	"github.com/spf13/cobra"

	"taskhub/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

func (o *RootOptions) load() (*config.Config, error) {
	return config.Load(o.ConfigPath)
}

// NewRootCommand creates the taskhub command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taskhub",
		Short: "Task management backend",
		Long:  "taskhub serves the task API with realtime notifications, audit logs and scheduled mail.",
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))

	return cmd
}
