package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-overview/internal/coordinator"
	"github.com/dvloznov/finance-overview/internal/domain"
)

func newTransactionsCmd(a *app) *cobra.Command {
	var inflows, outflows bool
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Show recent bank transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.refresh(cmd.Context(), coordinator.SourceTransactions, coordinator.SourceBalance)
			txs := v.Transactions
			switch {
			case inflows:
				txs = domain.Inflows(txs)
			case outflows:
				txs = domain.Outflows(txs)
			}
			t := newTable(cmd.OutOrStdout(), "Date", "Description", "Debtor", "Amount")
			for _, tx := range txs {
				t.Append([]string{tx.Date.String(), tx.Description, tx.Debtor, tx.Amount.Display()})
			}
			t.Render()

			if v.Loaded[coordinator.SourceBalance] {
				fmt.Fprintf(cmd.OutOrStdout(), "\nBalance %s", v.Balance.Amount.Display())
				if !v.Balance.LastCheck.IsZero() {
					fmt.Fprintf(cmd.OutOrStdout(), ", checked %s", humanize.Time(v.Balance.LastCheck))
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&inflows, "in", false, "only money in")
	cmd.Flags().BoolVar(&outflows, "out", false, "only money out")
	cmd.MarkFlagsMutuallyExclusive("in", "out")
	return cmd
}

func newEmailsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "emails",
		Aliases: []string{"email"},
		Short:   "Review candidate bills found in email",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List candidate bills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.refresh(cmd.Context(), coordinator.SourceEmails)
			t := newTable(cmd.OutOrStdout(), "ID", "Received", "Sender", "Subject", "Amount")
			for _, e := range v.Emails {
				amount := ""
				if e.Amount != nil {
					amount = e.Amount.Display()
				}
				received := ""
				if !e.CreatedAt.IsZero() {
					received = humanize.Time(e.CreatedAt)
				}
				t.Append([]string{strconv.FormatInt(e.ID, 10), received, e.Sender, e.Subject, amount})
			}
			t.Render()
			return nil
		},
	}

	dismiss := &cobra.Command{
		Use:   "dismiss ID",
		Short: "Remove a candidate bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.coord.DismissEmail(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed email %d\n", id)
			return nil
		},
	}

	scan := &cobra.Command{
		Use:   "scan",
		Short: "Ask the server to scan the mailbox for new bills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.coord.ScanEmails(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email scan started")
			return nil
		},
	}

	cmd.AddCommand(list, dismiss, scan)
	return cmd
}
