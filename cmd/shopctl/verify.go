package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wichananm65/coffee-shop-backend/internal/cart"
	"github.com/wichananm65/coffee-shop-backend/internal/config"
	"github.com/wichananm65/coffee-shop-backend/internal/order"
	"github.com/wichananm65/coffee-shop-backend/internal/payment"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

func verifyCmd() *cobra.Command {
	var (
		all   bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "verify [providerSessionId]",
		Short: "Reconcile orders with the payment provider",
		Long: `Ask the payment provider for the state of a checkout session and mark
the order paid when the provider confirms payment. Orders are never
cancelled automatically; use this when a shopper paid but never came back
to the success page and no webhook arrived.

Examples:
  shopctl verify cs_live_a1b2c3
  shopctl verify --all --limit 200`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			svc, err := newOrderService(e)
			if err != nil {
				return err
			}
			if all {
				return reconcileAll(cmd.Context(), svc, cmd.OutOrStdout(), limit)
			}

			res, err := svc.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !res.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not paid (provider status %q)\n", args[0], res.ProviderStatus)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: order %s is %s\n", args[0], res.Order.ID, res.Order.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reconcile every order awaiting payment")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum orders to check with --all")
	return cmd
}

// newOrderService builds the order service against the real provider. The
// sandbox provider keeps its sessions in the server process, so there is
// nothing to reconcile against from here.
func newOrderService(e *env) (*order.Service, error) {
	if e.cfg.PaymentProvider != config.ProviderStripe {
		return nil, fmt.Errorf("verify needs PAYMENT_PROVIDER=%s, got %q", config.ProviderStripe, e.cfg.PaymentProvider)
	}
	if e.cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not set")
	}
	gateway := payment.NewBreakerGateway(
		payment.NewStripeGateway(e.cfg.StripeSecretKey, e.cfg.StripeWebhookSecret),
		payment.BreakerConfig{Timeout: e.cfg.PaymentTimeout},
	)
	products := product.NewService(product.NewPostgresRepository(e.db))
	carts := cart.NewService(cart.NewPostgresRepository(e.db), products)
	return order.NewService(order.NewPostgresRepository(e.db), carts, gateway, order.Config{
		Currency:       e.cfg.Currency,
		PublicBaseURL:  e.cfg.PublicBaseURL,
		PaymentTimeout: e.cfg.PaymentTimeout,
	}).WithLogger(e.log), nil
}

type reconciler interface {
	ListAwaitingPayment(ctx context.Context, limit int) ([]order.Order, error)
	Verify(ctx context.Context, providerSessionID string) (order.VerifyResult, error)
}

// reconcileAll verifies every awaiting_payment order and prints one line per
// order. A failure on one order does not stop the rest.
func reconcileAll(ctx context.Context, svc reconciler, out io.Writer, limit int) error {
	orders, err := svc.ListAwaitingPayment(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tPROVIDER SESSION\tRESULT")
	var paid, failed int
	for _, ord := range orders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ord.ProviderSessionID == nil {
			continue
		}
		psid := *ord.ProviderSessionID
		res, err := svc.Verify(ctx, psid)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(tw, "%s\t%s\terror: %v\n", ord.ID, psid, err)
		case res.Success:
			paid++
			fmt.Fprintf(tw, "%s\t%s\tpaid\n", ord.ID, psid)
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ord.ID, psid, res.ProviderStatus)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "checked %d orders, %d paid, %d failed\n", len(orders), paid, failed)
	if failed > 0 {
		return fmt.Errorf("%d orders could not be verified", failed)
	}
	return nil
}
