package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-overview/internal/apiclient"
	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/coordinator"
	"github.com/dvloznov/finance-overview/internal/logger"
)

var version = "1.0.0"

// app carries what every subcommand shares. The coordinator is built in
// PersistentPreRunE from the resolved flags.
type app struct {
	apiURL string
	token  string
	log    zerolog.Logger

	coord *coordinator.Coordinator
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "finance",
		Short: "Finance overview CLI - invoices, expenses, income and the bank balance",
		Long: `finance talks to the finance API and shows the same view as the web
dashboard: invoices sorted by due date, expenses, income, bank transactions,
candidate bills from email and the balance / outstanding / profit-loss summary.

Configuration comes from the environment or a .env file:
  API_URL    API root, default http://localhost:8080/api
  API_TOKEN  bearer token, if the server requires one
  LOG_LEVEL  debug, info, warn or error`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := []apiclient.Option{}
			if a.token != "" {
				opts = append(opts, apiclient.WithToken(a.token))
			}
			a.coord = coordinator.New(apiclient.New(a.apiURL, opts...))
			cmd.SetContext(logger.WithContext(cmd.Context(), a.log))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.coord == nil {
				return
			}
			printNotifications(cmd.ErrOrStderr(), a.coord.Notifications())
			a.coord.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", a.apiURL, "API root URL")
	root.PersistentFlags().StringVar(&a.token, "token", a.token, "API bearer token")

	root.AddCommand(
		newSummaryCmd(a),
		newInvoicesCmd(a),
		newExpensesCmd(a),
		newIncomesCmd(a),
		newTransactionsCmd(a),
		newEmailsCmd(a),
	)
	return root
}

func (a *app) refresh(ctx context.Context, sources ...coordinator.Source) coordinator.View {
	a.coord.Refresh(ctx, sources...)
	return a.coord.Snapshot()
}

func printNotifications(w io.Writer, notes []apperr.Notification) {
	for _, n := range notes {
		prefix := n.Title
		if n.Source != "" {
			prefix = fmt.Sprintf("%s (%s)", n.Title, n.Source)
		}
		fmt.Fprintf(w, "%s: %s\n", prefix, n.Description)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("cli", "id", fmt.Sprintf("%q is not a record id", s))
	}
	return id, nil
}
