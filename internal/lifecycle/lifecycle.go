// Package lifecycle drives the invoice payment state machine:
// unpaid+incomplete, unpaid+complete and paid. Paid is terminal.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/normalize"
)

// State is the lifecycle state of an invoice.
type State int

const (
	UnpaidIncomplete State = iota
	UnpaidComplete
	Paid
)

func (s State) String() string {
	switch s {
	case UnpaidIncomplete:
		return "unpaid_incomplete"
	case UnpaidComplete:
		return "unpaid_complete"
	case Paid:
		return "paid"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateOf derives the state from the invoice fields. Completion is computed
// from the routing fields, never read from a stored flag.
func StateOf(inv domain.Invoice) State {
	switch {
	case inv.Status:
		return Paid
	case domain.NeedsCompletion(inv.Bankgiro, inv.Plusgiro, inv.OCR):
		return UnpaidIncomplete
	default:
		return UnpaidComplete
	}
}

// CanMarkPaid reports whether the pay action should be offered.
func CanMarkPaid(inv domain.Invoice) bool { return !inv.Status }

// Store persists invoices. The API client and the server repositories both
// satisfy it.
type Store interface {
	GetInvoice(ctx context.Context, id int64) (domain.Invoice, error)
	CreateInvoice(ctx context.Context, draft domain.InvoiceDraft) (domain.Invoice, error)
	UpdateInvoice(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
}

// Outcome is the result of MarkPaid. AlreadyPaid is true when the invoice
// was paid before the call and nothing was sent.
type Outcome struct {
	Invoice     domain.Invoice
	AlreadyPaid bool
}

// Controller validates invoice transitions before delegating to a Store.
type Controller struct {
	store Store
}

// New creates a Controller backed by store.
func New(store Store) *Controller {
	return &Controller{store: store}
}

// Edit applies patch to invoice id. The edited record must validate and
// survive a round trip through the normalizer before anything is sent.
// A patch that would mark a paid invoice unpaid is rejected.
func (c *Controller) Edit(ctx context.Context, id int64, patch domain.InvoicePatch) (domain.Invoice, error) {
	log := logger.FromContext(ctx).With().Str("op", "Edit").Int64("invoice_id", id).Logger()

	if patch.Empty() {
		return domain.Invoice{}, apperr.Validation("Edit", "", "nothing to update")
	}
	current, err := c.store.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if current.Status && patch.Status != nil && !*patch.Status {
		return current, apperr.Validation("Edit", "status", "a paid invoice cannot be marked unpaid")
	}

	edited := patch.Apply(current)
	if err := ValidateInvoice("Edit", edited.Issuer, edited.Amount, edited.DueDate); err != nil {
		return current, err
	}
	if err := roundTrip(edited); err != nil {
		return current, err
	}

	updated, err := c.store.UpdateInvoice(ctx, id, submission(edited, patch))
	if err != nil {
		log.Error().Err(err).Msg("update failed")
		return current, err
	}
	updated.Refresh()
	log.Info().
		Str("state", StateOf(updated).String()).
		Bool("needs_completion", updated.NeedsCompletion).
		Msg("invoice edited")
	return updated, nil
}

// MarkPaid moves an unpaid invoice to paid. On an already paid invoice it
// sends nothing and reports AlreadyPaid.
func (c *Controller) MarkPaid(ctx context.Context, id int64) (Outcome, error) {
	log := logger.FromContext(ctx).With().Str("op", "MarkPaid").Int64("invoice_id", id).Logger()

	current, err := c.store.GetInvoice(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if current.Status {
		log.Debug().Msg("invoice already paid")
		return Outcome{Invoice: current, AlreadyPaid: true}, nil
	}

	paid := true
	updated, err := c.store.UpdateInvoice(ctx, id, domain.InvoicePatch{Status: &paid})
	if err != nil {
		log.Error().Err(err).Msg("mark paid failed")
		return Outcome{Invoice: current}, err
	}
	if !updated.Status {
		return Outcome{Invoice: current}, apperr.Transport("MarkPaid", 0, errors.New("payment was not recorded"))
	}
	updated.Refresh()
	log.Info().Str("from", StateOf(current).String()).Msg("invoice paid")
	return Outcome{Invoice: updated}, nil
}

// Delete removes an invoice in any state.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.store.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("invoice_id", id).Msg("invoice deleted")
	return nil
}

// Create validates and stores a manually entered invoice. Its initial state
// follows from the routing fields.
func (c *Controller) Create(ctx context.Context, draft domain.InvoiceDraft) (domain.Invoice, error) {
	draft.Issuer = strings.TrimSpace(draft.Issuer)
	if err := ValidateInvoice("Create", draft.Issuer, draft.Amount, draft.DueDate); err != nil {
		return domain.Invoice{}, err
	}
	inv, err := c.store.CreateInvoice(ctx, draft)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.Refresh()
	log := logger.FromContext(ctx)
	log.Info().
		Int64("invoice_id", inv.ID).
		Str("state", StateOf(inv).String()).
		Msg("invoice created")
	return inv, nil
}

// ValidateInvoice checks the fields every stored invoice needs.
func ValidateInvoice(op, issuer string, amount domain.Money, due domain.Date) error {
	if strings.TrimSpace(issuer) == "" {
		return apperr.Validation(op, "issuer", "is required")
	}
	if amount.IsNegative() {
		return apperr.Validation(op, "amount", "must not be negative")
	}
	if !due.Valid() {
		return apperr.Validation(op, "due_date", "must be a date in YYYY-MM-DD format")
	}
	return nil
}

// roundTrip checks that the record reads back unchanged through the normalizer.
func roundTrip(inv domain.Invoice) error {
	if inv.ID == 0 {
		return apperr.Validation("Edit", "id", "is required")
	}
	b, err := json.Marshal(inv)
	if err != nil {
		return apperr.Validation("Edit", "", fmt.Sprintf("cannot encode invoice: %v", err))
	}
	res := normalize.Invoice(b)
	if res.Rejected {
		return apperr.Validation("Edit", "", res.Reason)
	}
	got := res.Record
	switch {
	case got.Issuer != inv.Issuer:
		return apperr.Validation("Edit", "issuer", "does not survive normalization")
	case !got.Amount.Equal(inv.Amount):
		return apperr.Validation("Edit", "amount", "does not survive normalization")
	case got.DueDate != inv.DueDate:
		return apperr.Validation("Edit", "due_date", "does not survive normalization")
	case got.NeedsCompletion != inv.NeedsCompletion:
		return apperr.Validation("Edit", "needs_completion", "does not survive normalization")
	}
	return nil
}

// submission is the full field set sent for an edit.
func submission(edited domain.Invoice, patch domain.InvoicePatch) domain.InvoicePatch {
	out := domain.InvoicePatch{
		Issuer:   &edited.Issuer,
		Amount:   &edited.Amount,
		DueDate:  &edited.DueDate,
		Bankgiro: &edited.Bankgiro,
		Plusgiro: &edited.Plusgiro,
		OCR:      &edited.OCR,
	}
	// Only a payment is forwarded. Unpaid is the stored default, and sending
	// false could race a concurrent MarkPaid.
	if patch.Status != nil && *patch.Status {
		paid := true
		out.Status = &paid
	}
	return out
}
