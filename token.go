package main

import (
	"fmt"

	"orderd/internal/auth"
	"orderd/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer credential for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.Role(role).Valid() {
				return fmt.Errorf("unknown role %q (want customer or admin)", role)
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			token, err := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL).IssueToken(args[0], auth.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleCustomer), "customer or admin")
	return cmd
}
