package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vk/kindledrop/internal/ctxlog"
)

// DefaultTimeout bounds a single engine call.
const DefaultTimeout = 120 * time.Second

// maxBodyBytes caps how much of an engine reply is read.
const maxBodyBytes = 1 << 20

// Sender is what the CLI handler and the web form depend on.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Client posts submissions to one engine. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient returns a client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the engine base address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint returns the absolute URL of the send endpoint.
func (c *Client) Endpoint() (string, error) {
	return ResolveEndpoint(c.baseURL)
}

// ResolveEndpoint joins EndpointPath onto an engine base address.
func ResolveEndpoint(baseURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid engine URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid engine URL %q: must be absolute", baseURL)
	}
	return base.ResolveReference(&url.URL{Path: EndpointPath}).String(), nil
}

// Send posts req to the engine and decodes the reply. Anything other than a
// decodable 2xx reply is a *TransportError. An ok=false reply is returned as
// is; classifying it is Interpret's job.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	logger := ctxlog.FromContext(ctx)

	endpoint, err := c.Endpoint()
	if err != nil {
		return nil, &TransportError{Message: err.Error(), Err: err}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Message: err.Error(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logger.Debug("Sending request to engine.", "endpoint", endpoint, "request", req)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, networkError(err, c.http.Timeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, networkError(err, c.http.Timeout)
	}
	logger.Debug("Engine replied.", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    statusMessage(resp.StatusCode, body),
			Body:       body,
		}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    "engine returned an unreadable response",
			Body:       body,
			Err:        err,
		}
	}
	return &out, nil
}

// statusMessage prefers the engine's own "message" field.
func statusMessage(code int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("engine returned HTTP %d %s", code, text)
	}
	return fmt.Sprintf("engine returned HTTP %d", code)
}

func networkError(err error, timeout time.Duration) *TransportError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{
			Message: fmt.Sprintf("engine did not respond within %s", timeout),
			Err:     err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &TransportError{Message: "request to engine was canceled", Err: err}
	}
	return &TransportError{
		Message: fmt.Sprintf("could not reach engine: %v", err),
		Err:     err,
	}
}
