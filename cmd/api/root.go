package main

import (
	"github.com/spf13/cobra"
)

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Help-desk ticket service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		seedCommand(),
		promoteCommand(),
	)
	return rootCmd
}
