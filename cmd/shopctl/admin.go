package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wichananm65/coffee-shop-backend/internal/user"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage catalog administrators",
	}
	cmd.AddCommand(setAdminCmd("grant", "Give a registered user admin rights", true))
	cmd.AddCommand(setAdminCmd("revoke", "Remove admin rights from a user", false))
	return cmd
}

func setAdminCmd(use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			svc := user.NewService(user.NewPostgresRepository(e.db))
			u, err := svc.SetAdmin(cmd.Context(), args[0], isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin=%t\n", u.Email, u.IsAdmin)
			return nil
		},
	}
}
