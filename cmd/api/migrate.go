package main

import (
	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newApplication(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.migrate(cmd.Context())
		},
	}
}
