// Package emailscan flags mailbox messages that look like bills and stores
// them as candidate bills for human review.
package emailscan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/invoiceparse"
	"github.com/dvloznov/finance-overview/internal/jobs"
	"github.com/dvloznov/finance-overview/internal/logger"
	"github.com/dvloznov/finance-overview/internal/repository"
)

// Keywords mark a message as a candidate bill when found in its subject or
// body (case-insensitive).
var Keywords = []string{"invoice", "receipt", "bill", "faktura", "kvitto", "räkning", "betalning", "payment", "betala"}

// Message is one mailbox message.
type Message struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// Mailbox lists messages received after a point in time.
type Mailbox interface {
	MessagesSince(ctx context.Context, since time.Time) ([]Message, error)
}

// Matches reports whether the message mentions any keyword.
func Matches(m Message) bool {
	subject := strings.ToLower(m.Subject)
	body := strings.ToLower(m.Body)
	for _, kw := range Keywords {
		if strings.Contains(subject, kw) || strings.Contains(body, kw) {
			return true
		}
	}
	return false
}

// Scanner stores matching messages as candidate bills.
type Scanner struct {
	mailbox Mailbox
	emails  repository.EmailRepository
	now     func() time.Time
}

// NewScanner creates a scanner.
func NewScanner(mailbox Mailbox, emails repository.EmailRepository) *Scanner {
	return &Scanner{mailbox: mailbox, emails: emails, now: time.Now}
}

// Scan fetches messages received after since and stores the ones that match.
// A zero since means the start of today. Messages already stored are skipped.
// It returns how many new candidate bills were stored.
func (s *Scanner) Scan(ctx context.Context, since time.Time) (int, error) {
	log := logger.FromContext(ctx)

	if since.IsZero() {
		now := s.now()
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	messages, err := s.mailbox.MessagesSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("Scan: list messages: %w", err)
	}

	var bills []domain.CandidateBill
	for _, m := range messages {
		if !Matches(m) {
			continue
		}
		bills = append(bills, candidate(m))
	}
	if len(bills) == 0 {
		log.Info().Int("messages", len(messages)).Msg("No candidate bills found")
		return 0, nil
	}

	added, err := s.emails.InsertEmails(ctx, bills)
	if err != nil {
		return added, fmt.Errorf("Scan: store candidates: %w", err)
	}
	log.Info().
		Int("messages", len(messages)).
		Int("matched", len(bills)).
		Int("added", added).
		Msg("Email scan complete")
	return added, nil
}

func candidate(m Message) domain.CandidateBill {
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		subject = "No subject"
	}
	return domain.CandidateBill{
		MessageID: m.ID,
		Sender:    strings.TrimSpace(m.From),
		Subject:   subject,
		Body:      m.Body,
		Amount:    invoiceparse.FromText(m.Subject + "\n" + m.Body).Amount,
	}
}

// Handler returns the scan_emails job handler.
func Handler(s *Scanner) jobs.Handler {
	return func(ctx context.Context, job *jobs.Job) error {
		_, err := s.Scan(ctx, job.Since)
		return err
	}
}
