package coordinator

import (
	"context"
	"fmt"
	"io"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/lifecycle"
	"github.com/dvloznov/finance-overview/internal/logger"
)

var (
	// The balance is refetched with every summary input so the summary is
	// never built from a fresh total and an older balance.
	invoiceSources = []Source{SourceInvoices, SourceBalance, SourceStatistics}
	expenseSources = []Source{SourceExpenses, SourceBalance, SourceStatistics}
	incomeSources  = []Source{SourceIncomes, SourceBalance, SourceStatistics}
	emailSources   = []Source{SourceEmails}
)

// run executes one mutation under the mutation lock. The mutation completes
// before the affected sources are refetched; on failure nothing is refetched
// and the error is also queued as a notification.
func (c *Coordinator) run(ctx context.Context, op string, affected []Source, fn func(context.Context) (string, error)) error {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	msg, err := fn(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("op", op).Msg("mutation failed")
		c.notify(apperr.Notify(err))
		return err
	}
	c.Refresh(ctx, affected...)
	if msg != "" {
		c.notify(apperr.Success(msg))
	}
	return nil
}

// MarkPaid pays an invoice. The outcome tells whether it was already paid.
func (c *Coordinator) MarkPaid(ctx context.Context, id int64) (lifecycle.Outcome, error) {
	var out lifecycle.Outcome
	err := c.run(ctx, "MarkPaid", invoiceSources, func(ctx context.Context) (string, error) {
		var err error
		out, err = c.lifecycle.MarkPaid(ctx, id)
		if err != nil {
			return "", err
		}
		if out.AlreadyPaid {
			return "Invoice is already paid.", nil
		}
		return "Invoice marked as paid.", nil
	})
	return out, err
}

// EditInvoice applies a validated patch to an invoice.
func (c *Coordinator) EditInvoice(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error) {
	var inv domain.Invoice
	err := c.run(ctx, "EditInvoice", invoiceSources, func(ctx context.Context) (string, error) {
		var err error
		inv, err = c.lifecycle.Edit(ctx, id, patch)
		return "Invoice updated.", err
	})
	return inv, err
}

// DeleteInvoice removes an invoice in any state.
func (c *Coordinator) DeleteInvoice(ctx context.Context, id int64) error {
	return c.run(ctx, "DeleteInvoice", invoiceSources, func(ctx context.Context) (string, error) {
		return "Invoice deleted.", c.lifecycle.Delete(ctx, id)
	})
}

// CreateInvoice stores a manually entered invoice.
func (c *Coordinator) CreateInvoice(ctx context.Context, draft domain.InvoiceDraft) (domain.Invoice, error) {
	var inv domain.Invoice
	err := c.run(ctx, "CreateInvoice", invoiceSources, func(ctx context.Context) (string, error) {
		var err error
		inv, err = c.lifecycle.Create(ctx, draft)
		return "Invoice created.", err
	})
	return inv, err
}

// UploadInvoice uploads a PDF for parsing.
func (c *Coordinator) UploadInvoice(ctx context.Context, filename string, pdf io.Reader) (domain.Invoice, error) {
	var inv domain.Invoice
	err := c.run(ctx, "UploadInvoice", invoiceSources, func(ctx context.Context) (string, error) {
		var err error
		inv, err = c.api.UploadInvoice(ctx, filename, pdf)
		return fmt.Sprintf("Uploaded %s.", filename), err
	})
	return inv, err
}

// CreateExpense stores an expense. The recurring label is accepted and
// logged; it is not stored.
func (c *Coordinator) CreateExpense(ctx context.Context, draft domain.ExpenseDraft) (domain.Expense, error) {
	var e domain.Expense
	err := c.run(ctx, "CreateExpense", expenseSources, func(ctx context.Context) (string, error) {
		if draft.Amount.IsNegative() {
			return "", apperr.Validation("CreateExpense", "amount", "must not be negative")
		}
		if draft.Recurring {
			log := logger.FromContext(ctx)
			log.Debug().Msg("recurring label ignored")
		}
		var err error
		e, err = c.api.CreateExpense(ctx, draft)
		return "Expense added.", err
	})
	return e, err
}

// EditExpense applies a patch to an expense.
func (c *Coordinator) EditExpense(ctx context.Context, id int64, patch domain.ExpensePatch) (domain.Expense, error) {
	var e domain.Expense
	err := c.run(ctx, "EditExpense", expenseSources, func(ctx context.Context) (string, error) {
		if patch.Amount != nil && patch.Amount.IsNegative() {
			return "", apperr.Validation("EditExpense", "amount", "must not be negative")
		}
		var err error
		e, err = c.api.UpdateExpense(ctx, id, patch)
		return "Expense updated.", err
	})
	return e, err
}

// DeleteExpense removes an expense.
func (c *Coordinator) DeleteExpense(ctx context.Context, id int64) error {
	return c.run(ctx, "DeleteExpense", expenseSources, func(ctx context.Context) (string, error) {
		return "Expense deleted.", c.api.DeleteExpense(ctx, id)
	})
}

// CreateIncome stores an income entry.
func (c *Coordinator) CreateIncome(ctx context.Context, draft domain.IncomeDraft) (domain.Income, error) {
	var in domain.Income
	err := c.run(ctx, "CreateIncome", incomeSources, func(ctx context.Context) (string, error) {
		if draft.Recurring {
			log := logger.FromContext(ctx)
			log.Debug().Msg("recurring label ignored")
		}
		var err error
		in, err = c.api.CreateIncome(ctx, draft)
		return "Income added.", err
	})
	return in, err
}

// DeleteIncome removes an income entry.
func (c *Coordinator) DeleteIncome(ctx context.Context, id int64) error {
	return c.run(ctx, "DeleteIncome", incomeSources, func(ctx context.Context) (string, error) {
		return "Income deleted.", c.api.DeleteIncome(ctx, id)
	})
}

// DismissEmail deletes a candidate bill. Only the email list is refetched.
func (c *Coordinator) DismissEmail(ctx context.Context, id int64) error {
	return c.run(ctx, "DismissEmail", emailSources, func(ctx context.Context) (string, error) {
		return "Email dismissed.", c.api.DeleteEmail(ctx, id)
	})
}

// ScanEmails triggers a mailbox scan and reloads the candidate list.
func (c *Coordinator) ScanEmails(ctx context.Context) error {
	return c.run(ctx, "ScanEmails", emailSources, func(ctx context.Context) (string, error) {
		return "Email scan complete.", c.api.ScanEmails(ctx)
	})
}
