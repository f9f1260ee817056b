package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-overview/internal/coordinator"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balance, outstanding and profit/loss",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.coord.Sync(cmd.Context())
			v := a.coord.Snapshot()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Balance:      %s", v.Summary.Balance.Display())
			if v.Loaded[coordinator.SourceBalance] && !v.Balance.LastCheck.IsZero() {
				fmt.Fprintf(out, " (checked %s)", humanize.Time(v.Balance.LastCheck))
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Outstanding:  %s\n", v.Summary.Outstanding.Display())
			fmt.Fprintf(out, "Profit/Loss:  %s\n", v.Summary.ProfitLoss.Display())
			fmt.Fprintf(out, "Invoices: %d  Expenses: %d  Incomes: %d  Candidate bills: %d\n",
				len(v.Invoices), len(v.Expenses), len(v.Incomes), len(v.Emails))

			for _, m := range v.Mismatches {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server statistics disagree, %s\n", m)
			}
			for src, rej := range v.Rejections {
				if len(rej) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d malformed %s record(s) skipped\n", len(rej), src)
				}
			}
			return nil
		},
	}
}
