package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"roastmarket_backend/internal/auth"
)

func newTokenCmd(opts *cliOptions) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token signed with jwt_secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := opts.v.GetString("jwt-secret")
			if secret == "" {
				secret = opts.v.GetString("jwt_secret")
			}
			if secret == "" {
				return errors.New("jwt secret is required (--jwt-secret, ROASTCTL_JWT_SECRET or config jwt_secret)")
			}
			if userID == "" {
				return errors.New("--user is required")
			}
			if err := auth.ValidateRole(role); err != nil {
				return err
			}

			token, err := auth.NewTokenManager(secret, ttl).GenerateToken(userID, role)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("jwt-secret", "", "HS256 secret shared with the server")
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed")
	cmd.Flags().StringVar(&role, "role", "buyer", "buyer, roaster or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
