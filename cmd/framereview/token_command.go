package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sendrec/framereview/internal/auth"
	"github.com/sendrec/framereview/internal/validate"
)

// newTokenCommand mints a reviewer access token for local testing.
func newTokenCommand(ctx *commandContext) *cobra.Command {
	var reviewer string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a short-lived reviewer access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if msg := validate.UUID(reviewer, "reviewer"); msg != "" {
				return errors.New(msg)
			}
			token, err := auth.GenerateAccessToken(cfg.Auth.JWTSecret, reviewer)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer (profile) id to embed in the token")
	return cmd
}
