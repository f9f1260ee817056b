// Package export renders invoices, expenses and income as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/normalize"
	"github.com/dvloznov/finance-overview/internal/repository"
	"github.com/dvloznov/finance-overview/internal/summary"
)

// Source is what the exporter reads.
type Source interface {
	repository.InvoiceRepository
	repository.ExpenseRepository
	repository.IncomeRepository
}

// ContentType is the MIME type of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetSummary  = "Summary"
	SheetInvoices = "Invoices"
	SheetExpenses = "Expenses"
	SheetIncomes  = "Incomes"
)

// Service produces workbooks from stored records.
type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

// XLSX reads every invoice, expense and income and returns the workbook
// bytes. balance feeds the summary sheet.
func (s *Service) XLSX(ctx context.Context, balance domain.Money) ([]byte, error) {
	start := time.Now()

	invoices, err := s.src.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("XLSX: invoices: %w", err)
	}
	expenses, err := s.src.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("XLSX: expenses: %w", err)
	}
	incomes, err := s.src.ListIncomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("XLSX: incomes: %w", err)
	}

	out, err := Workbook(balance, invoices, expenses, incomes)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("invoices", len(invoices)).
		Int("expenses", len(expenses)).
		Int("incomes", len(incomes)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Workbook exported")
	return out, nil
}

// Workbook renders the records. Amounts are written as numbers and dates as
// ISO strings.
func Workbook(balance domain.Money, invoices []domain.Invoice, expenses []domain.Expense, incomes []domain.Income) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("Workbook: %w", err)
	}
	sum := summary.Compute(balance, invoices, expenses, incomes)
	summaryRows := [][]any{
		{"Figure", "Amount"},
		{"Balance", sum.Balance.Float64()},
		{"Outstanding", sum.Outstanding.Float64()},
		{"Profit/Loss", sum.ProfitLoss.Float64()},
		{"Unpaid invoices", summary.UnpaidTotal(invoices).Float64()},
	}
	if err := writeRows(f, SheetSummary, summaryRows); err != nil {
		return nil, err
	}

	invoiceRows := [][]any{{"ID", "Issuer", "Amount", "Due date", "Paid", "Bankgiro", "Plusgiro", "OCR", "Needs completion"}}
	sorted := append([]domain.Invoice(nil), invoices...)
	normalize.SortInvoices(sorted)
	for _, inv := range sorted {
		invoiceRows = append(invoiceRows, []any{
			inv.ID, inv.Issuer, inv.Amount.Float64(), inv.DueDate.String(), inv.Paid(),
			inv.Bankgiro, inv.Plusgiro, inv.OCR, inv.NeedsCompletion,
		})
	}
	expenseRows := [][]any{{"ID", "Date", "Category", "Description", "Amount"}}
	for _, e := range expenses {
		expenseRows = append(expenseRows, []any{e.ID, e.Date.String(), e.Category, e.Description, e.Amount.Float64()})
	}
	incomeRows := [][]any{{"ID", "Date", "Source", "Description", "Amount"}}
	for _, in := range incomes {
		incomeRows = append(incomeRows, []any{in.ID, in.Date.String(), in.Source, in.Description, in.Amount.Float64()})
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{SheetInvoices, invoiceRows},
		{SheetExpenses, expenseRows},
		{SheetIncomes, incomeRows},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("Workbook: %w", err)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(SheetSummary, "A", "A", 18)
	_ = f.SetColWidth(SheetInvoices, "B", "B", 28)
	_ = f.SetColWidth(SheetExpenses, "D", "D", 40)
	_ = f.SetColWidth(SheetIncomes, "D", "D", 40)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("Workbook: xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
	}
	return nil
}
