package invoiceparse

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/domain"
)

// qrPayload is the JSON carried by Swedish invoice payment QR codes.
type qrPayload struct {
	Due         json.Number `json:"due"`
	Account     string      `json:"acc"`
	PaymentType string      `json:"pt"`
	Reference   string      `json:"iref"`
	DueDate     string      `json:"ddt"`
	Name        string      `json:"nme"`
}

// FromQR decodes a payment QR payload. The account is routed to bankgiro
// or plusgiro by the payment type ("BG" or "PG").
func FromQR(payload string) (Fields, error) {
	var qr qrPayload
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&qr); err != nil {
		return Fields{}, fmt.Errorf("FromQR: %w", err)
	}

	f := Fields{Issuer: qr.Name, OCR: qr.Reference}
	switch strings.ToUpper(qr.PaymentType) {
	case "BG":
		f.Bankgiro = qr.Account
	case "PG":
		f.Plusgiro = qr.Account
	}
	if qr.Due != "" {
		amount, err := domain.ParseMoney(qr.Due.String())
		if err != nil {
			return Fields{}, fmt.Errorf("FromQR: amount: %w", err)
		}
		f.Amount = &amount
	}
	if qr.DueDate != "" {
		t, err := time.Parse("20060102", qr.DueDate)
		if err != nil {
			return Fields{}, fmt.Errorf("FromQR: due date: %w", err)
		}
		f.DueDate = domain.DateOf(t)
	}
	return f, nil
}
