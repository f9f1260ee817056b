package apperr

import (
	"errors"
	"fmt"
)

// Severity of a notification.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityDestructive Severity = "destructive"
)

// Notification is what the user sees when an operation finishes or fails.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Field       string   `json:"field,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Success builds an informational notification.
func Success(description string) Notification {
	return Notification{Title: "Success", Description: description, Severity: SeverityInfo}
}

// Notify converts a failure into a user-facing notification. It never panics,
// whatever the error.
func Notify(err error) Notification {
	if err == nil {
		return Success("Done.")
	}
	var e *Error
	if !errors.As(err, &e) {
		return Notification{Title: "Error", Description: "An unexpected error occurred.", Severity: SeverityDestructive}
	}
	n := Notification{Title: "Error", Severity: SeverityDestructive}
	switch e.Kind {
	case KindValidation:
		n.Title = "Invalid input"
		n.Field = e.Field
		n.Description = e.Message
		if e.Field != "" {
			n.Description = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
	case KindDecode:
		n.Description = "No PDF data available."
	case KindNotFound:
		n.Description = fmt.Sprintf("Failed to fetch data: %s.", e.Message)
	default:
		n.Description = fmt.Sprintf("Request failed during %s.", e.Op)
	}
	return n
}
