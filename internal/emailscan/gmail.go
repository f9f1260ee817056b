package emailscan

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail reads messages from the authorized user's Gmail account.
type Gmail struct {
	svc *gmail.Service
}

// NewGmail creates a read-only Gmail mailbox from an OAuth client credentials
// file and a previously authorized token file.
func NewGmail(ctx context.Context, credentialsFile, tokenFile string) (*Gmail, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("NewGmail: read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(creds, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("NewGmail: parse credentials: %w", err)
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("NewGmail: read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("NewGmail: parse token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("NewGmail: create service: %w", err)
	}
	return &Gmail{svc: svc}, nil
}

// MessagesSince implements Mailbox.
func (g *Gmail) MessagesSince(ctx context.Context, since time.Time) ([]Message, error) {
	query := "after:" + since.Format("2006/01/02")

	var ids []string
	err := g.svc.Users.Messages.List("me").Q(query).Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("MessagesSince: list: %w", err)
	}

	out := make([]Message, 0, len(ids))
	for _, id := range ids {
		msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("MessagesSince: get %s: %w", id, err)
		}
		out = append(out, toMessage(msg))
	}
	return out, nil
}

func toMessage(msg *gmail.Message) Message {
	m := Message{ID: msg.Id}
	if msg.Payload == nil {
		return m
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			m.Subject = h.Value
		case "From":
			m.From = h.Value
		}
	}
	m.Body = body(msg.Payload)
	if m.Body == "" {
		m.Body = msg.Snippet
	}
	return m
}

// body returns the first text/plain part, falling back to text/html.
func body(p *gmail.MessagePart) string {
	if plain := findPart(p, "text/plain"); plain != "" {
		return plain
	}
	return findPart(p, "text/html")
}

func findPart(p *gmail.MessagePart, mimeType string) string {
	if strings.HasPrefix(p.MimeType, mimeType) && p.Body != nil && p.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(p.Body.Data)
		if err != nil {
			data, err = base64.RawURLEncoding.DecodeString(p.Body.Data)
		}
		if err == nil {
			return string(data)
		}
	}
	for _, part := range p.Parts {
		if s := findPart(part, mimeType); s != "" {
			return s
		}
	}
	return ""
}
