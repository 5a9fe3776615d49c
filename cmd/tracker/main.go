package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/issuedesk/tracker/internal/cli/migrate"
	"github.com/issuedesk/tracker/internal/cli/server"
	"github.com/issuedesk/tracker/internal/cli/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Issue tracker backend",
		Long:          `tracker serves the issue tracking REST API and provides schema and account administration commands.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		user.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
