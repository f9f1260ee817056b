package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Discord posts messages to a Discord channel webhook.
type Discord struct {
	url  string
	http *http.Client
}

// NewDiscord creates a notifier for the webhook URL.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{url: webhookURL, http: &http.Client{Timeout: 15 * time.Second}}
}

// Send implements Notifier. Discord answers 204 No Content on success.
func (d *Discord) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("Send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Send: webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
