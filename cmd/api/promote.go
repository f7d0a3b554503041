package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func promoteCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant administrator rights to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newApplication(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.authService.PromoteToAdmin(cmd.Context(), email); err != nil {
				return err
			}
			rt.logger.Info("user promoted to administrator", zap.String("email", email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to promote")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
