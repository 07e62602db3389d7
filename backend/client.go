package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"verification-service/models"
	"verification-service/monitoring"
)

// StatusChecker is the single external operation the verification poller
// depends on. Implementations must be idempotent: repeated calls with the
// same reference are safe.
type StatusChecker interface {
	CheckTransactionStatus(ctx context.Context, reference string) (*models.TransactionSnapshot, error)
}

// CallbackResolver forwards raw gateway callback parameters to the backend
// for validation and returns the canonical transaction reference.
type CallbackResolver interface {
	ResolveCallback(ctx context.Context, gateway string, params url.Values) (string, error)
}

// Client talks to the payments backend over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a backend API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
}

type snapshotEnvelope struct {
	Status  bool                        `json:"status"`
	Message string                      `json:"message"`
	Data    *models.TransactionSnapshot `json:"data"`
}

// CheckTransactionStatus fetches the current snapshot of a transaction.
func (c *Client) CheckTransactionStatus(ctx context.Context, reference string) (*models.TransactionSnapshot, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "payments-backend"),
		attribute.String("transaction.reference", reference),
	)

	endpoint := fmt.Sprintf("%s/api/v1/transactions/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		c.recordCheck(ctx, duration, "error")
		return nil, fmt.Errorf("failed to check transaction status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordCheck(ctx, duration, "failed")
		return nil, fmt.Errorf("backend returned status %d for reference %s", resp.StatusCode, reference)
	}

	var envelope snapshotEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.recordCheck(ctx, duration, "error")
		return nil, fmt.Errorf("failed to decode transaction snapshot: %w", err)
	}
	if envelope.Data == nil {
		c.recordCheck(ctx, duration, "error")
		return nil, fmt.Errorf("backend returned empty snapshot for reference %s", reference)
	}

	c.recordCheck(ctx, duration, "success")
	span.SetAttributes(attribute.String("transaction.status", envelope.Data.Status))

	return envelope.Data, nil
}

type callbackEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// ResolveCallback relays raw gateway callback parameters to the backend and
// returns the reference the verification flow should poll.
func (c *Client) ResolveCallback(ctx context.Context, gateway string, params url.Values) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/callbacks/%s?%s", c.baseURL, url.PathEscape(gateway), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to relay %s callback: %w", gateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend rejected %s callback with status %d", gateway, resp.StatusCode)
	}

	var envelope callbackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to decode callback response: %w", err)
	}
	if envelope.Data.Reference == "" {
		return "", fmt.Errorf("backend returned no reference for %s callback", gateway)
	}

	return envelope.Data.Reference, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) recordCheck(ctx context.Context, duration float64, status string) {
	if monitoring.StatusCheckDuration == nil {
		return
	}
	monitoring.StatusCheckDuration.Record(ctx, duration,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
