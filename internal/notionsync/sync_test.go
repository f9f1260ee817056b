package notionsync

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/infra/inmemory"
)

type fakeNotion struct {
	pages   []notionapi.Page
	created []notionapi.Properties
	updated map[string]notionapi.Properties
	deleted []string
	failOn  string
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	f.created = append(f.created, props)
	return &notionapi.Page{ID: notionapi.ObjectID("new-" + strconv.Itoa(len(f.created)))}, nil
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	if pageID == f.failOn {
		return nil, errors.New("rate limited")
	}
	if f.updated == nil {
		f.updated = map[string]notionapi.Properties{}
	}
	f.updated[pageID] = props
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

// QueryDatabase serves one page per call to exercise the cursor loop.
func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	i := 0
	if req.StartCursor != "" {
		i, _ = strconv.Atoi(string(req.StartCursor))
	}
	if i >= len(f.pages) {
		return &notionapi.DatabaseQueryResponse{}, nil
	}
	resp := &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{f.pages[i]}}
	if i+1 < len(f.pages) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(strconv.Itoa(i + 1))
	}
	return resp, nil
}

func (f *fakeNotion) DeletePage(ctx context.Context, pageID string) error {
	f.deleted = append(f.deleted, pageID)
	return nil
}

func pageFor(id string, invoiceID string) notionapi.Page {
	props := notionapi.Properties{}
	if invoiceID != "" {
		props[PropInvoiceID] = &notionapi.TitleProperty{
			Title: []notionapi.RichText{{PlainText: invoiceID}},
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func TestSyncInvoices(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	today := domain.NewDate(2024, 9, 15)

	kept, err := store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Kept", Amount: domain.MoneyFromInt(10), DueDate: today})
	require.NoError(t, err)
	fresh, err := store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "Fresh", Amount: domain.MoneyFromInt(20), DueDate: today.AddDays(10)})
	require.NoError(t, err)

	notion := &fakeNotion{pages: []notionapi.Page{
		pageFor("p-kept", strconv.FormatInt(kept.ID, 10)),
		pageFor("p-gone", "999"),
		pageFor("p-noid", ""),
	}}

	res, err := SyncInvoices(ctx, store, notion, "db", today, false)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Updated: 1, Deleted: 2}, res)
	assert.ElementsMatch(t, []string{"p-gone", "p-noid"}, notion.deleted)

	require.Contains(t, notion.updated, "p-kept")
	urgency := notion.updated["p-kept"][PropUrgency].(notionapi.SelectProperty)
	assert.Equal(t, "soon", urgency.Select.Name)

	require.Len(t, notion.created, 1)
	title := notion.created[0][PropInvoiceID].(notionapi.TitleProperty)
	assert.Equal(t, strconv.FormatInt(fresh.ID, 10), title.Title[0].Text.Content)
}

func TestSyncInvoicesDryRun(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	_, err := store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "A", Amount: domain.MoneyFromInt(1)})
	require.NoError(t, err)
	notion := &fakeNotion{pages: []notionapi.Page{pageFor("p-gone", "5")}}

	res, err := SyncInvoices(ctx, store, notion, "db", domain.NewDate(2024, 1, 1), true)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Deleted: 1}, res)
	assert.Empty(t, notion.created)
	assert.Empty(t, notion.deleted)
}

func TestSyncInvoicesPageFailureCounted(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	inv, err := store.CreateInvoice(ctx, domain.InvoiceDraft{Issuer: "A", Amount: domain.MoneyFromInt(1)})
	require.NoError(t, err)
	notion := &fakeNotion{
		pages:  []notionapi.Page{pageFor("p1", strconv.FormatInt(inv.ID, 10))},
		failOn: "p1",
	}

	res, err := SyncInvoices(ctx, store, notion, "db", domain.NewDate(2024, 1, 1), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

func TestInvoiceToNotionPropertiesPaid(t *testing.T) {
	inv := domain.Invoice{ID: 7, Issuer: "X", Amount: domain.MoneyFromInt(5), Status: true, OCR: "123"}
	props := InvoiceToNotionProperties(inv, domain.NewDate(2024, 1, 1))
	assert.NotContains(t, props, PropUrgency)
	assert.NotContains(t, props, PropDueDate)
	assert.NotContains(t, props, PropBankgiro)
	assert.Contains(t, props, PropOCR)
	assert.True(t, props[PropPaid].(notionapi.CheckboxProperty).Checkbox)
}
