// Package coordinator owns the client-side view of all record sources. It
// fetches sources concurrently, keeps one snapshot from which the summary is
// always recomputed, and after each mutation refetches only the resources the
// mutation touched.
package coordinator

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/document"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/lifecycle"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/normalize"
	"github.com/dvloznov/finance-overview/internal/summary"
)

// Source names one independently fetched resource.
type Source string

const (
	SourceInvoices     Source = "invoices"
	SourceExpenses     Source = "expenses"
	SourceIncomes      Source = "incomes"
	SourceTransactions Source = "transactions"
	SourceBalance      Source = "balance"
	SourceEmails       Source = "emails"
	SourceStatistics   Source = "statistics"
)

// AllSources is every source in fetch order.
var AllSources = []Source{
	SourceInvoices, SourceExpenses, SourceIncomes, SourceTransactions,
	SourceBalance, SourceEmails, SourceStatistics,
}

// API is the remote side the coordinator reads from and mutates through.
// *apiclient.Client implements it.
type API interface {
	lifecycle.Store
	ListInvoices(ctx context.Context) ([]domain.Invoice, []normalize.Rejection, error)
	UploadInvoice(ctx context.Context, filename string, pdf io.Reader) (domain.Invoice, error)

	ListExpenses(ctx context.Context) ([]domain.Expense, []normalize.Rejection, error)
	CreateExpense(ctx context.Context, draft domain.ExpenseDraft) (domain.Expense, error)
	UpdateExpense(ctx context.Context, id int64, patch domain.ExpensePatch) (domain.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error

	ListIncomes(ctx context.Context) ([]domain.Income, []normalize.Rejection, error)
	CreateIncome(ctx context.Context, draft domain.IncomeDraft) (domain.Income, error)
	DeleteIncome(ctx context.Context, id int64) error

	Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, []normalize.Rejection, error)
	Balance(ctx context.Context) (domain.BankBalance, error)
	Statistics(ctx context.Context) (domain.Statistics, error)

	ListEmails(ctx context.Context) ([]domain.CandidateBill, []normalize.Rejection, error)
	DeleteEmail(ctx context.Context, id int64) error
	ScanEmails(ctx context.Context) error
}

// View is a read-only copy of the coordinator state.
type View struct {
	Invoices     []domain.Invoice
	Expenses     []domain.Expense
	Incomes      []domain.Income
	Transactions []domain.BankTransaction
	Emails       []domain.CandidateBill
	Balance      domain.BankBalance
	Statistics   *domain.Statistics

	// Summary is recomputed from the fields above on every arrival.
	Summary domain.Summary
	// Mismatches lists server statistics that disagree with Summary once
	// every summary input has arrived.
	Mismatches []summary.Mismatch
	Loaded     map[Source]bool
	Rejections map[Source][]normalize.Rejection
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	api       API
	lifecycle *lifecycle.Controller
	documents *document.Resolver
	today     func() domain.Date
	window    int

	// mutate serializes mutations together with their refetch.
	mutate sync.Mutex

	mu     sync.Mutex
	view   View
	gen    map[Source]uint64
	notes  []apperr.Notification
	closed bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithToday replaces the calendar used for the transaction window.
func WithToday(today func() domain.Date) Option {
	return func(c *Coordinator) { c.today = today }
}

// WithResolver replaces the document resolver.
func WithResolver(r *document.Resolver) Option {
	return func(c *Coordinator) { c.documents = r }
}

// WithTransactionWindow sets how many days back transactions are listed.
func WithTransactionWindow(days int) Option {
	return func(c *Coordinator) { c.window = days }
}

// New creates a coordinator over api.
func New(api API, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:       api,
		lifecycle: lifecycle.New(api),
		documents: document.NewResolver(api),
		today:     domain.Today,
		window:    30,
		gen:       make(map[Source]uint64),
		view: View{
			Loaded:     make(map[Source]bool),
			Rejections: make(map[Source][]normalize.Rejection),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync fetches every source concurrently and waits for all of them.
// Per-source failures become notifications and never block other sources.
func (c *Coordinator) Sync(ctx context.Context) {
	c.Refresh(ctx, AllSources...)
}

// Refresh invalidates and refetches the given sources.
func (c *Coordinator) Refresh(ctx context.Context, sources ...Source) {
	var g errgroup.Group
	for _, src := range sources {
		gen := c.bump(src)
		g.Go(func() error {
			apply, err := c.fetch(ctx, src)
			c.arrive(ctx, src, gen, apply, err)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) bump(src Source) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[src]++
	return c.gen[src]
}

// arrive applies one fetch result. Results from a superseded generation or
// arriving after Close are dropped.
func (c *Coordinator) arrive(ctx context.Context, src Source, gen uint64, apply func(*View), err error) {
	log := logger.FromContext(ctx).With().Str("source", string(src)).Logger()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen[src] != gen {
		log.Debug().Uint64("gen", gen).Msg("discarding stale result")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("fetch failed")
		n := apperr.Notify(err)
		n.Source = string(src)
		c.notes = append(c.notes, n)
		return
	}
	apply(&c.view)
	c.view.Loaded[src] = true
	c.recomputeLocked()
}

func (c *Coordinator) recomputeLocked() {
	v := &c.view
	v.Summary = summary.Compute(v.Balance.Amount, v.Invoices, v.Expenses, v.Incomes)
	v.Mismatches = nil
	if v.Statistics == nil {
		return
	}
	for _, src := range []Source{SourceInvoices, SourceExpenses, SourceIncomes, SourceBalance} {
		if !v.Loaded[src] {
			return
		}
	}
	v.Mismatches = summary.CheckStatistics(v.Summary, *v.Statistics)
}

func (c *Coordinator) fetch(ctx context.Context, src Source) (func(*View), error) {
	switch src {
	case SourceInvoices:
		invoices, rej, err := c.api.ListInvoices(ctx)
		return func(v *View) { v.Invoices, v.Rejections[src] = invoices, rej }, err
	case SourceExpenses:
		expenses, rej, err := c.api.ListExpenses(ctx)
		return func(v *View) { v.Expenses, v.Rejections[src] = expenses, rej }, err
	case SourceIncomes:
		incomes, rej, err := c.api.ListIncomes(ctx)
		return func(v *View) { v.Incomes, v.Rejections[src] = incomes, rej }, err
	case SourceTransactions:
		to := c.today()
		txs, rej, err := c.api.Transactions(ctx, to.AddDays(-c.window), to)
		return func(v *View) { v.Transactions, v.Rejections[src] = txs, rej }, err
	case SourceBalance:
		bal, err := c.api.Balance(ctx)
		return func(v *View) { v.Balance = bal }, err
	case SourceEmails:
		bills, rej, err := c.api.ListEmails(ctx)
		return func(v *View) { v.Emails, v.Rejections[src] = bills, rej }, err
	case SourceStatistics:
		stats, err := c.api.Statistics(ctx)
		return func(v *View) { v.Statistics = &stats }, err
	default:
		return nil, apperr.Validation("Refresh", "source", "unknown source "+string(src))
	}
}

// Snapshot returns a copy of the current view.
func (c *Coordinator) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.Invoices = append([]domain.Invoice(nil), v.Invoices...)
	v.Expenses = append([]domain.Expense(nil), v.Expenses...)
	v.Incomes = append([]domain.Income(nil), v.Incomes...)
	v.Transactions = append([]domain.BankTransaction(nil), v.Transactions...)
	v.Emails = append([]domain.CandidateBill(nil), v.Emails...)
	v.Mismatches = append([]summary.Mismatch(nil), v.Mismatches...)
	if v.Statistics != nil {
		stats := *v.Statistics
		v.Statistics = &stats
	}
	v.Loaded = make(map[Source]bool, len(c.view.Loaded))
	for k, ok := range c.view.Loaded {
		v.Loaded[k] = ok
	}
	v.Rejections = make(map[Source][]normalize.Rejection, len(c.view.Rejections))
	for k, rej := range c.view.Rejections {
		v.Rejections[k] = append([]normalize.Rejection(nil), rej...)
	}
	return v
}

// Notifications returns and clears the pending user-facing notices.
func (c *Coordinator) Notifications() []apperr.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notes
	c.notes = nil
	return out
}

func (c *Coordinator) notify(n apperr.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

// ResolveDocument turns an invoice's PDF into a viewing handle that stays
// valid for document.TTL.
func (c *Coordinator) ResolveDocument(ctx context.Context, invoiceID int64) (*document.Handle, error) {
	h, err := c.documents.Resolve(ctx, invoiceID)
	if err != nil {
		c.notify(apperr.Notify(err))
		return nil, err
	}
	return h, nil
}

// Documents returns the resolver backing ResolveDocument, for serving handles.
func (c *Coordinator) Documents() *document.Resolver { return c.documents }

// Close revokes document handles and drops every result still in flight.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.documents.Close()
}
