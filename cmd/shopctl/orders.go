package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wichananm65/coffee-shop-backend/internal/order"
)

func ordersCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders by status, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := order.Status(status)
			switch st {
			case order.StatusPending, order.StatusAwaitingPayment, order.StatusPaid:
			default:
				return fmt.Errorf("unknown status %q", status)
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			return listOrders(cmd.Context(), order.NewPostgresRepository(e.db), cmd.OutOrStdout(), st, limit)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", string(order.StatusAwaitingPayment), "pending, awaiting_payment or paid")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum orders to list")
	return cmd
}

type orderLister interface {
	ListByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error)
}

func listOrders(ctx context.Context, repo orderLister, out io.Writer, status order.Status, limit int) error {
	orders, err := repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCREATED\tCUSTOMER\tTOTAL\tPROVIDER SESSION")
	for _, o := range orders {
		psid := "-"
		if o.ProviderSessionID != nil {
			psid = *o.ProviderSessionID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n",
			o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Customer.Email,
			o.TotalAmount.StringFixed(2), o.Currency, psid)
	}
	return tw.Flush()
}
