// Package afacturar sends credit note payloads to the Afacturar
// electronic invoicing API.
package afacturar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ripsnc/internal/config"
	"ripsnc/internal/domain"
	"ripsnc/internal/port"
)

// CreditNotePath is the credit note endpoint under each environment base URL.
const CreditNotePath = "/api/doc_equivalente/TTP/nota_credito"

// Client is an HTTP Submitter for the provider.
type Client struct {
	token  string
	bases  map[domain.Environment]string
	client *http.Client
}

var _ port.Submitter = (*Client)(nil)

// NewClient creates a client from the provider settings.
func NewClient(cfg *config.ProviderConfig) *Client {
	bases := make(map[domain.Environment]string)
	for env, base := range cfg.BaseURLs() {
		bases[domain.Environment(env)] = base
	}
	return newClient(cfg, bases)
}

// NewClientWithEndpoint creates a client that sends every environment to
// base. Used by tests.
func NewClientWithEndpoint(cfg *config.ProviderConfig, base string) *Client {
	bases := map[domain.Environment]string{
		domain.EnvironmentTest:       base,
		domain.EnvironmentStaging:    base,
		domain.EnvironmentProduction: base,
	}
	return newClient(cfg, bases)
}

func newClient(cfg *config.ProviderConfig, bases map[domain.Environment]string) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		token:  cfg.Token,
		bases:  bases,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the credit note endpoint for env.
func (c *Client) URL(env domain.Environment) (string, error) {
	base, ok := c.bases[env]
	if !ok || base == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEnvironment, env)
	}
	return strings.TrimRight(base, "/") + CreditNotePath, nil
}

// Submit posts payload as JSON. Any HTTP status is returned as a result;
// only transport failures are errors.
func (c *Client) Submit(ctx context.Context, env domain.Environment, payload any) (*port.SubmitResult, error) {
	url, err := c.URL(env)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.token, "Bearer "))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling afacturar API: %v", domain.ErrSubmissionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrSubmissionFailed, err)
	}

	return &port.SubmitResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}
