package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra/inmemory"
)

func TestXLSX(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	_, err := store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Later", Amount: domain.MoneyFromInt(200), DueDate: domain.NewDate(2024, 10, 1)})
	require.NoError(t, err)
	_, err = store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Sooner", Amount: domain.MoneyFromInt(100), DueDate: domain.NewDate(2024, 9, 1), Bankgiro: "1", Plusgiro: "2", OCR: "3"})
	require.NoError(t, err)
	_, err = store.CreateExpense(ctx, domain.ExpenseDraft{Category: "Food", Description: "Lunch", Amount: domain.MoneyFromInt(50), Date: domain.NewDate(2024, 9, 2)})
	require.NoError(t, err)
	_, err = store.CreateIncome(ctx, domain.IncomeDraft{Source: "Salary", Amount: domain.MoneyFromInt(1000), Date: domain.NewDate(2024, 9, 25)})
	require.NoError(t, err)

	data, err := NewService(store).XLSX(ctx, domain.MoneyFromInt(500))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetInvoices, SheetExpenses, SheetIncomes}, f.GetSheetList())

	rows, err := f.GetRows(SheetInvoices)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Issuer", rows[0][1])
	assert.Equal(t, "Sooner", rows[1][1])
	assert.Equal(t, "2024-09-01", rows[1][3])
	assert.Equal(t, "Later", rows[2][1])

	// Outstanding = 300 unpaid + 50 expenses; profit/loss = 500 + 1000 - 350.
	outstanding, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "350", outstanding)
	pl, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "1150", pl)

	rows, err = f.GetRows(SheetExpenses)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lunch", rows[1][3])
}

func TestWorkbookEmpty(t *testing.T) {
	data, err := Workbook(domain.Money{}, nil, nil, nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetIncomes)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
