// Package reminder sends due-date reminders for unpaid invoices.
package reminder

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// Notifier delivers a reminder message.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Message returns the reminder text for inv, or "" when no reminder is due.
// Reminders go out on the due date and the two days before it. Paid
// invoices never get one.
func Message(inv domain.Invoice, today domain.Date) string {
	if inv.Paid() || !inv.DueDate.Valid() {
		return ""
	}
	switch today.DaysUntil(inv.DueDate) {
	case 0:
		return fmt.Sprintf("Reminder: Invoice from %s is due today!", inv.Issuer)
	case 1:
		return fmt.Sprintf("Reminder: Invoice from %s is due tomorrow!", inv.Issuer)
	case 2:
		return fmt.Sprintf("Reminder: Invoice from %s is due in 2 days!", inv.Issuer)
	default:
		return ""
	}
}

// Reminder checks stored invoices and notifies about the ones coming due.
type Reminder struct {
	invoices repository.InvoiceRepository
	notifier Notifier
	today    func() domain.Date
}

// New creates a reminder.
func New(invoices repository.InvoiceRepository, notifier Notifier) *Reminder {
	return &Reminder{invoices: invoices, notifier: notifier, today: domain.Today}
}

// Run sends one message per invoice coming due. A failed send does not stop
// the others; all send errors are returned together.
func (r *Reminder) Run(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	log.Info().Msg("Checking for due invoices")

	invoices, err := r.invoices.ListInvoices(ctx)
	if err != nil {
		return 0, fmt.Errorf("Run: list invoices: %w", err)
	}

	today := r.today()
	sent := 0
	var errs []error
	for _, inv := range invoices {
		msg := Message(inv, today)
		if msg == "" {
			continue
		}
		if err := r.notifier.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("invoice %d: %w", inv.ID, err))
			continue
		}
		sent++
	}
	log.Info().Int("sent", sent).Int("failed", len(errs)).Msg("Due reminders done")
	return sent, errors.Join(errs...)
}
