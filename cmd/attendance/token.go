package main

import (
	"fmt"
	"time"

	"axiapac.com/attendance/security"
	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	var name, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create a bearer token for the attendance API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.API.SigningSecret == "" {
				return fmt.Errorf("api.signingSecret is not configured")
			}
			secret, err := security.DecodeSecret(c.cfg.API.SigningSecret)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = c.cfg.API.TokenTTL
			}

			token, err := security.CreateIdentityToken(security.Identity{Name: name, Role: role}, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name carried in the token")
	cmd.Flags().StringVar(&role, "role", "admin", "Role carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to api.tokenTTL")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
