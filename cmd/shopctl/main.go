// Command shopctl runs maintenance tasks against the storefront database:
// schema migrations, catalog seeding, manual payment reconciliation and
// admin grants.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wichananm65/coffee-shop-backend/internal/config"
	"github.com/wichananm65/coffee-shop-backend/internal/database"
	"github.com/wichananm65/coffee-shop-backend/internal/logging"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Storefront maintenance commands",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(ordersCmd())
	root.AddCommand(adminCmd())
	return root
}

// env holds what every command needs once configuration is loaded.
type env struct {
	cfg config.Config
	db  *sql.DB
	log *slog.Logger
}

// openEnv loads configuration and connects to Postgres. Logs go to stderr so
// command output stays clean.
func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	log := logging.NewWithWriter(os.Stderr, "shopctl", cfg.LogLevel)
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, log: log}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}
