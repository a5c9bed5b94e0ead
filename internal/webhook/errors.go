// internal/webhook/errors.go
package webhook

import (
	"errors"
	"fmt"
)

const (
	OpLock = "lock"
	OpGet  = "get"
	OpPut  = "put"
)

var (
	ErrEmptyWebhookID   = errors.New("webhook ID is empty")
	ErrEmptyAPIKey      = errors.New("webhook API key is empty")
	ErrLockNotAcquired  = errors.New("webhook lock not acquired")
	ErrLockLost         = errors.New("webhook lock lost before the update finished")
	ErrUnexpectedStatus = errors.New("unexpected webhook service status")
)

// maxBodyExcerpt bounds how much of an error response is kept.
const maxBodyExcerpt = 512

// WebhookServiceError reports a failed call to the webhook service.
type WebhookServiceError struct {
	Op         string
	WebhookID  string
	StatusCode int
	Body       string
	Err        error
}

func (e *WebhookServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook %s %s: status %d: %s", e.Op, e.WebhookID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("webhook %s %s: %v", e.Op, e.WebhookID, e.Err)
}

func (e *WebhookServiceError) Unwrap() error {
	return e.Err
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt]) + "..."
	}
	return string(body)
}
