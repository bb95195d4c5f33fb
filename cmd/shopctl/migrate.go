package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wichananm65/coffee-shop-backend/internal/database"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := database.Migrate(e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default coffee catalog into an empty database",
		Long: `Load the default coffee catalog.

Nothing is inserted when the products table already has rows, so the
command is safe to run on every deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := database.Migrate(e.db); err != nil {
				return err
			}
			svc := product.NewService(product.NewPostgresRepository(e.db))
			n, err := svc.Seed(cmd.Context(), product.DefaultCatalog())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog already has products, skipping seed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}
