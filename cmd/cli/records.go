package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-overview/internal/coordinator"
	"github.com/dvloznov/finance-overview/internal/domain"
)

func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense"},
		Short:   "List and manage expenses",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.refresh(cmd.Context(), coordinator.SourceExpenses)
			t := newTable(cmd.OutOrStdout(), "ID", "Date", "Category", "Description", "Amount")
			for _, e := range v.Expenses {
				t.Append([]string{strconv.FormatInt(e.ID, 10), e.Date.String(), e.Category, e.Description, e.Amount.Display()})
			}
			t.Render()
			return nil
		},
	}

	var category, description, amount, date string
	var recurring bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "cli.expenses.add"
			m, err := parseAmount(op, amount)
			if err != nil {
				return err
			}
			d, err := parseDate(op, "date", date)
			if err != nil {
				return err
			}
			e, err := a.coord.CreateExpense(cmd.Context(), domain.ExpenseDraft{
				Category: category, Description: description, Amount: m, Date: d, Recurring: recurring,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created expense %d\n", e.ID)
			return nil
		},
	}
	add.Flags().StringVar(&category, "category", "", "category")
	add.Flags().StringVar(&description, "description", "", "description")
	add.Flags().StringVar(&amount, "amount", "", "amount, e.g. 99.50")
	add.Flags().StringVar(&date, "date", domain.Today().String(), "date, YYYY-MM-DD")
	add.Flags().BoolVar(&recurring, "recurring", false, "label the expense as recurring")
	add.MarkFlagRequired("category")
	add.MarkFlagRequired("amount")

	var patch struct{ category, description, amount, date string }
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change expense fields; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "cli.expenses.edit"
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p domain.ExpensePatch
			changed := cmd.Flags().Changed
			if changed("category") {
				p.Category = &patch.category
			}
			if changed("description") {
				p.Description = &patch.description
			}
			if changed("amount") {
				m, err := parseAmount(op, patch.amount)
				if err != nil {
					return err
				}
				p.Amount = &m
			}
			if changed("date") {
				d, err := parseDate(op, "date", patch.date)
				if err != nil {
					return err
				}
				p.Date = &d
			}
			e, err := a.coord.EditExpense(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated expense %d\n", e.ID)
			return nil
		},
	}
	edit.Flags().StringVar(&patch.category, "category", "", "category")
	edit.Flags().StringVar(&patch.description, "description", "", "description")
	edit.Flags().StringVar(&patch.amount, "amount", "", "amount")
	edit.Flags().StringVar(&patch.date, "date", "", "date, YYYY-MM-DD")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.coord.DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted expense %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del)
	return cmd
}

func newIncomesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incomes",
		Aliases: []string{"income"},
		Short:   "List and manage income",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List income entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.refresh(cmd.Context(), coordinator.SourceIncomes)
			t := newTable(cmd.OutOrStdout(), "ID", "Date", "Source", "Description", "Amount")
			for _, in := range v.Incomes {
				t.Append([]string{strconv.FormatInt(in.ID, 10), in.Date.String(), in.Source, in.Description, in.Amount.Display()})
			}
			t.Render()
			return nil
		},
	}

	var source, description, amount, date string
	var recurring bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Record income",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "cli.incomes.add"
			m, err := parseAmount(op, amount)
			if err != nil {
				return err
			}
			d, err := parseDate(op, "date", date)
			if err != nil {
				return err
			}
			in, err := a.coord.CreateIncome(cmd.Context(), domain.IncomeDraft{
				Source: source, Description: description, Amount: m, Date: d, Recurring: recurring,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created income %d\n", in.ID)
			return nil
		},
	}
	add.Flags().StringVar(&source, "source", "", "where the money came from")
	add.Flags().StringVar(&description, "description", "", "description")
	add.Flags().StringVar(&amount, "amount", "", "amount, e.g. 25000")
	add.Flags().StringVar(&date, "date", domain.Today().String(), "date, YYYY-MM-DD")
	add.Flags().BoolVar(&recurring, "recurring", false, "label the income as recurring")
	add.MarkFlagRequired("source")
	add.MarkFlagRequired("amount")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an income entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.coord.DeleteIncome(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted income %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}
