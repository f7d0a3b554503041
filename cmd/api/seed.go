package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/seed"
)

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts, tickets and comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newApplication(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.migrate(ctx); err != nil {
				return err
			}

			result, err := seed.Run(ctx, seed.Services{
				Auth:     rt.authService,
				Tickets:  rt.ticketService,
				Comments: rt.commentService,
			}, rt.logger, time.Now())
			if err != nil {
				return err
			}
			if !result.Skipped {
				cmd.Printf("administrator: %s / %s\n", seed.AdminEmail, seed.AdminPassword)
				cmd.Printf("user:          %s / %s\n", seed.UserEmail, seed.UserPassword)
			}
			return nil
		},
	}
}
