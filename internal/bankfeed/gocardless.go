package bankfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// DefaultGoCardlessURL is the GoCardless (formerly Nordigen) Bank Account
// Data API root.
const DefaultGoCardlessURL = "https://bankaccountdata.gocardless.com/api/v2"

// GoCardless is a Feed reading one account through the GoCardless Bank
// Account Data API.
type GoCardless struct {
	root      string
	secretID  string
	secretKey string
	accountID string
	http      *http.Client

	mu      sync.Mutex
	access  string
	expires time.Time
	now     func() time.Time
}

// NewGoCardless creates a feed for accountID. An empty root uses
// DefaultGoCardlessURL.
func NewGoCardless(root, secretID, secretKey, accountID string) *GoCardless {
	if root == "" {
		root = DefaultGoCardlessURL
	}
	return &GoCardless{
		root:      strings.TrimSuffix(root, "/"),
		secretID:  secretID,
		secretKey: secretKey,
		accountID: accountID,
		http:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

type tokenResponse struct {
	Access        string `json:"access"`
	AccessExpires int    `json:"access_expires"`
}

func (g *GoCardless) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.access != "" && g.now().Before(g.expires) {
		return g.access, nil
	}

	body, err := json.Marshal(map[string]string{"secret_id": g.secretID, "secret_key": g.secretKey})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.root+"/token/new/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := g.send(req, &tok); err != nil {
		return "", fmt.Errorf("new token: %w", err)
	}
	if tok.Access == "" {
		return "", fmt.Errorf("new token: empty access token")
	}
	g.access = tok.Access
	// Renew a minute early.
	g.expires = g.now().Add(time.Duration(tok.AccessExpires)*time.Second - time.Minute)
	return g.access, nil
}

func (g *GoCardless) get(ctx context.Context, path string, query url.Values, out any) error {
	access, err := g.token(ctx)
	if err != nil {
		return err
	}
	u := g.root + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Accept", "application/json")
	return g.send(req, out)
}

func (g *GoCardless) send(req *http.Request, out any) error {
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// Balance implements Feed.
func (g *GoCardless) Balance(ctx context.Context) (domain.Money, error) {
	var resp balancesResponse
	if err := g.get(ctx, "/accounts/"+g.accountID+"/balances/", nil, &resp); err != nil {
		return domain.Money{}, fmt.Errorf("GoCardless.Balance: %w", err)
	}
	m, err := resp.pick()
	if err != nil {
		return domain.Money{}, fmt.Errorf("GoCardless.Balance: %w", err)
	}
	return m, nil
}

// Transactions implements Feed.
func (g *GoCardless) Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	q := url.Values{}
	if from.Valid() {
		q.Set("date_from", from.String())
	}
	if to.Valid() {
		q.Set("date_to", to.String())
	}
	var resp transactionsResponse
	if err := g.get(ctx, "/accounts/"+g.accountID+"/transactions/", q, &resp); err != nil {
		return nil, fmt.Errorf("GoCardless.Transactions: %w", err)
	}
	txs, err := resp.records(from, to)
	if err != nil {
		return nil, fmt.Errorf("GoCardless.Transactions: %w", err)
	}
	return txs, nil
}
