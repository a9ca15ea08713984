// Package fetch is the shared HTTP JSON client behind the geocoding and
// routing services.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// maxBody caps how much of a response is read. Full rail geometries stay
// well below it.
const maxBody = 32 << 20

// Client fetches JSON documents and reports failures as
// trips.ExternalServiceError.
type Client struct {
	httpClient *http.Client
	service    string
	userAgent  string
	timeout    time.Duration
}

// NewClient creates a client for one named service. A zero timeout leaves
// the request bounded only by ctx.
func NewClient(service, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		service:    service,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// WithHTTPClient swaps the underlying transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) Service() string { return c.service }

// GetJSON issues a GET for rawURL with query appended and decodes the body
// into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := rawURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return trips.NewExternalServiceError(c.service, trips.FailureInternal, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return err
		}
		return trips.NewExternalServiceError(c.service, trips.CategoryForTransport(err), fmt.Errorf("failed to fetch %s: %w", rawURL, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return trips.NewExternalServiceError(c.service, trips.CategoryForStatus(resp.StatusCode), fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return trips.NewExternalServiceError(c.service, trips.CategoryForTransport(err), fmt.Errorf("read body: %w", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return trips.NewExternalServiceError(c.service, trips.FailureBadData, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
