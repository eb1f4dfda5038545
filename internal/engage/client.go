// Package engage delivers canonical webinar records to the WebEngage REST
// API: user profile upserts plus registration and attendance events, with
// rate-limit aware pacing, retry and adaptive bulk batching.
package engage

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

// Resource paths under /v1/accounts/{license}/.
const (
	resourceUsers      = "users"
	resourceEvents     = "events"
	resourceBulkUsers  = "bulk-users"
	resourceBulkEvents = "bulk-events"
)

// ClientConfig configures the API client.
type ClientConfig struct {
	BaseURL     string
	LicenseCode string
	APIKey      string
	Timeout     time.Duration

	// HTTPClient overrides the default client, used by tests to inject a
	// fake transport.
	HTTPClient *http.Client
}

// Client is a thin WebEngage REST client. It is safe for concurrent use;
// request pacing lives in the dispatcher, not here.
type Client struct {
	httpClient *http.Client
	baseURL    string
	license    string
	apiKey     string
}

// NewClient builds a client for one WebEngage account.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engage: base URL is required")
	}
	if cfg.LicenseCode == "" {
		return nil, fmt.Errorf("engage: license code is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("engage: API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		license:    cfg.LicenseCode,
		apiKey:     cfg.APIKey,
	}, nil
}

// UserPayload is the single-user upsert body. Empty optional fields are
// omitted; the opt-in flags are always sent as true.
type UserPayload struct {
	UserID        string            `json:"userId"`
	Email         string            `json:"email,omitempty"`
	FirstName     string            `json:"firstName,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	WhatsappOptIn bool              `json:"whatsappOptIn"`
	EmailOptIn    bool              `json:"emailOptIn"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// EventPayload is the single-event body. No timestamp field is sent; the API
// rejects one and stamps arrival time itself.
type EventPayload struct {
	UserID    string            `json:"userId"`
	EventName string            `json:"eventName"`
	EventData map[string]string `json:"eventData,omitempty"`
}

type bulkUsersBody struct {
	Users []UserPayload `json:"users"`
}

type bulkEventsBody struct {
	Events []EventPayload `json:"events"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("engage: api returned status %d", e.Status)
	}
	return fmt.Sprintf("engage: api returned status %d: %s", e.Status, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusTooManyRequests
}

// StatusOf extracts the HTTP status from an error, or zero for transport
// failures.
func StatusOf(err error) int {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Status
	}
	return 0
}

// UpsertUser creates or updates one user profile.
func (c *Client) UpsertUser(ctx context.Context, user UserPayload) error {
	return c.post(ctx, resourceUsers, user)
}

// FireEvent records one event against a user.
func (c *Client) FireEvent(ctx context.Context, event EventPayload) error {
	return c.post(ctx, resourceEvents, event)
}

// BulkUpsertUsers creates or updates many user profiles in one call.
func (c *Client) BulkUpsertUsers(ctx context.Context, users []UserPayload) error {
	return c.post(ctx, resourceBulkUsers, bulkUsersBody{Users: users})
}

// BulkFireEvents records many events in one call.
func (c *Client) BulkFireEvents(ctx context.Context, events []EventPayload) error {
	return c.post(ctx, resourceBulkEvents, bulkEventsBody{Events: events})
}

func (c *Client) post(ctx context.Context, resource string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("engage: encode %s payload: %w", resource, err)
	}

	url := fmt.Sprintf("%s/v1/accounts/%s/%s", c.baseURL, c.license, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("engage: build %s request: %w", resource, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engage: %s request: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
}
