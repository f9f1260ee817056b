// Package bankfeed reads the bank balance and booked transactions from an
// account-information provider and caches them in the repositories.
package bankfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// Feed is a source of bank data.
type Feed interface {
	Balance(ctx context.Context) (domain.Money, error)
	Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error)
}

// amount is a provider money value. Amounts arrive as decimal strings.
type amount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type balancesResponse struct {
	Balances []struct {
		BalanceAmount amount `json:"balanceAmount"`
		BalanceType   string `json:"balanceType"`
	} `json:"balances"`
}

type bookedTransaction struct {
	InternalTransactionID             string `json:"internalTransactionId"`
	TransactionID                     string `json:"transactionId"`
	BookingDate                       string `json:"bookingDate"`
	TransactionAmount                 amount `json:"transactionAmount"`
	RemittanceInformationUnstructured string `json:"remittanceInformationUnstructured"`
	DebtorName                        string `json:"debtorName"`
	CreditorName                      string `json:"creditorName"`
	AdditionalInformation             string `json:"additionalInformation"`
}

type transactionsResponse struct {
	Transactions struct {
		Booked []bookedTransaction `json:"booked"`
	} `json:"transactions"`
}

// preferredBalanceTypes orders the balance types a provider may report.
var preferredBalanceTypes = []string{"interimAvailable", "expected", "closingBooked", "interimBooked"}

func (r balancesResponse) pick() (domain.Money, error) {
	if len(r.Balances) == 0 {
		return domain.Money{}, fmt.Errorf("no balances reported")
	}
	chosen := r.Balances[0].BalanceAmount
	found := false
	for _, want := range preferredBalanceTypes {
		for _, b := range r.Balances {
			if b.BalanceType == want {
				chosen = b.BalanceAmount
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	m, err := domain.ParseMoney(chosen.Amount)
	if err != nil {
		return domain.Money{}, fmt.Errorf("balance amount: %w", err)
	}
	return m, nil
}

func (r transactionsResponse) records(from, to domain.Date) ([]domain.BankTransaction, error) {
	out := make([]domain.BankTransaction, 0, len(r.Transactions.Booked))
	for _, t := range r.Transactions.Booked {
		date, err := domain.ParseDate(t.BookingDate)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: booking date: %w", t.InternalTransactionID, err)
		}
		if (from.Valid() && date.Before(from.Date)) || (to.Valid() && to.Before(date.Date)) {
			continue
		}
		amt, err := domain.ParseMoney(t.TransactionAmount.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: amount: %w", t.InternalTransactionID, err)
		}
		id := t.InternalTransactionID
		if id == "" {
			id = t.TransactionID
		}
		if id == "" {
			return nil, fmt.Errorf("transaction on %s has no id", t.BookingDate)
		}
		debtor := t.DebtorName
		if debtor == "" {
			debtor = t.CreditorName
		}
		out = append(out, domain.BankTransaction{
			TransactionID:  id,
			Description:    strings.TrimSpace(t.RemittanceInformationUnstructured),
			AdditionalInfo: strings.TrimSpace(t.AdditionalInformation),
			Debtor:         debtor,
			Amount:         amt,
			Date:           date,
		})
	}
	return out, nil
}

// File is a Feed backed by a JSON export in the provider's format:
// {"balances": [...], "transactions": {"booked": [...]}}. It is used for
// local runs without bank credentials.
type File struct {
	path string
}

// NewFile creates a feed reading path on every call.
func NewFile(path string) *File {
	return &File{path: path}
}

type fileContents struct {
	balancesResponse
	transactionsResponse
}

func (f *File) load() (fileContents, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return fileContents{}, err
	}
	defer fh.Close()
	return decodeFile(fh)
}

func decodeFile(r io.Reader) (fileContents, error) {
	var c fileContents
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return fileContents{}, err
	}
	return c, nil
}

// Balance implements Feed.
func (f *File) Balance(ctx context.Context) (domain.Money, error) {
	c, err := f.load()
	if err != nil {
		return domain.Money{}, fmt.Errorf("File.Balance: %w", err)
	}
	m, err := c.pick()
	if err != nil {
		return domain.Money{}, fmt.Errorf("File.Balance: %w", err)
	}
	return m, nil
}

// Transactions implements Feed.
func (f *File) Transactions(ctx context.Context, from, to domain.Date) ([]domain.BankTransaction, error) {
	c, err := f.load()
	if err != nil {
		return nil, fmt.Errorf("File.Transactions: %w", err)
	}
	txs, err := c.records(from, to)
	if err != nil {
		return nil, fmt.Errorf("File.Transactions: %w", err)
	}
	return txs, nil
}
