// internal/webhook/helius.go
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.helius.xyz/v0"

	webhookTypeEnhanced = "enhanced"
	transactionTypeAny  = "Any"
)

// Config describes the single webhook every wallet is enrolled in.
type Config struct {
	BaseURL     string
	APIKey      string
	WebhookID   string
	CallbackURL string
}

// Webhook is the subset of the Helius webhook resource the registrar uses.
type Webhook struct {
	WebhookID        string   `json:"webhookID,omitempty"`
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	AccountAddresses []string `json:"accountAddresses"`
	WebhookType      string   `json:"webhookType"`
	AuthHeader       string   `json:"authHeader,omitempty"`
}

// Registrar adds addresses to the monitored set of a Helius webhook.
type Registrar struct {
	cfg        Config
	httpClient *http.Client
	locker     Locker
	logger     *zap.Logger
}

// NewRegistrar creates a registrar. A nil httpClient or locker gets a default.
func NewRegistrar(cfg Config, httpClient *http.Client, locker Locker, logger *zap.Logger) (*Registrar, error) {
	if cfg.WebhookID == "" {
		return nil, ErrEmptyWebhookID
	}
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Registrar{
		cfg:        cfg,
		httpClient: httpClient,
		locker:     locker,
		logger:     logger.Named("webhook"),
	}, nil
}

// WebhookID returns the managed webhook's ID.
func (r *Registrar) WebhookID() string {
	return r.cfg.WebhookID
}

// Register fetches the current address set, adds address and writes the full
// set back. It returns the set that was written.
func (r *Registrar) Register(ctx context.Context, address string) ([]string, error) {
	held, unlock, err := r.locker.Lock(ctx, r.cfg.WebhookID)
	if err != nil {
		return nil, &WebhookServiceError{Op: OpLock, WebhookID: r.cfg.WebhookID, Err: err}
	}
	defer unlock()

	current, err := r.Get(held)
	if err != nil {
		return nil, r.leaseError(held, OpGet, err)
	}

	// a PUT sent after the lease is gone could overwrite another holder's update
	if errors.Is(context.Cause(held), ErrLockLost) {
		return nil, r.leaseError(held, OpPut, nil)
	}

	addresses := MergeAddresses(current.AccountAddresses, address)
	if err := r.put(held, addresses); err != nil {
		return nil, r.leaseError(held, OpPut, err)
	}

	r.logger.Info("Webhook address set updated",
		zap.String("webhook_id", r.cfg.WebhookID),
		zap.String("address", address),
		zap.Int("before", len(current.AccountAddresses)),
		zap.Int("after", len(addresses)))
	return addresses, nil
}

// leaseError reports ErrLockLost in place of err when the lock was lost.
func (r *Registrar) leaseError(held context.Context, op string, err error) error {
	if errors.Is(context.Cause(held), ErrLockLost) {
		r.logger.Error("Webhook lock lost during update", zap.String("op", op))
		return &WebhookServiceError{Op: op, WebhookID: r.cfg.WebhookID, Err: ErrLockLost}
	}
	return err
}

// Get fetches the webhook.
func (r *Registrar) Get(ctx context.Context) (*Webhook, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(), nil)
	if err != nil {
		return nil, &WebhookServiceError{Op: OpGet, WebhookID: r.cfg.WebhookID, Err: err}
	}

	body, err := r.do(req, OpGet)
	if err != nil {
		return nil, err
	}

	var hook Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, &WebhookServiceError{
			Op:        OpGet,
			WebhookID: r.cfg.WebhookID,
			Err:       fmt.Errorf("failed to decode webhook: %w", err),
		}
	}
	if hook.AccountAddresses == nil {
		hook.AccountAddresses = []string{}
	}
	return &hook, nil
}

func (r *Registrar) put(ctx context.Context, addresses []string) error {
	payload, err := json.Marshal(Webhook{
		WebhookURL:       r.cfg.CallbackURL,
		TransactionTypes: []string{transactionTypeAny},
		AccountAddresses: addresses,
		WebhookType:      webhookTypeEnhanced,
	})
	if err != nil {
		return &WebhookServiceError{Op: OpPut, WebhookID: r.cfg.WebhookID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return &WebhookServiceError{Op: OpPut, WebhookID: r.cfg.WebhookID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = r.do(req, OpPut)
	return err
}

func (r *Registrar) do(req *http.Request, op string) ([]byte, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("Webhook request failed", zap.String("op", op), zap.Error(err))
		return nil, &WebhookServiceError{Op: op, WebhookID: r.cfg.WebhookID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &WebhookServiceError{
			Op:        op,
			WebhookID: r.cfg.WebhookID,
			Err:       fmt.Errorf("failed to read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("Webhook service returned error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return nil, &WebhookServiceError{
			Op:         op,
			WebhookID:  r.cfg.WebhookID,
			StatusCode: resp.StatusCode,
			Body:       excerpt(body),
			Err:        ErrUnexpectedStatus,
		}
	}
	return body, nil
}

func (r *Registrar) endpoint() string {
	return fmt.Sprintf("%s/webhooks/%s?api-key=%s",
		r.cfg.BaseURL, url.PathEscape(r.cfg.WebhookID), url.QueryEscape(r.cfg.APIKey))
}

// MergeAddresses returns current with address appended, without duplicates,
// keeping first-seen order.
func MergeAddresses(current []string, address string) []string {
	seen := make(map[string]struct{}, len(current)+1)
	merged := make([]string, 0, len(current)+1)
	for _, a := range append(current[:len(current):len(current)], address) {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		merged = append(merged, a)
	}
	return merged
}
