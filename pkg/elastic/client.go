package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Config holds connection settings for one store endpoint.
type Config struct {
	// BaseURL is the root of the store's HTTP API, e.g. "http://localhost:9200".
	BaseURL string

	// Timeout caps each request end to end. Zero means defaultTimeout.
	Timeout time.Duration

	// AuthMode selects how credentials are attached: "" (none), "basic"
	// (Username/Password), or "apikey" (Header/Key).
	AuthMode string
	Username string
	Password string
	Header   string
	Key      string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// Client issues write-side calls against one document store.
// It is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

// New builds a Client for cfg. The HTTP client is constructed once and reused
// across calls.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("elastic: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &authRoundTripper{
		base: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // user-configured
			},
		},
		cfg: cfg,
	}
	return &Client{
		base: base,
		http: &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	cfg  Config
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.cfg.AuthMode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.cfg.Header, t.cfg.Key)
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.cfg.Username, t.cfg.Password)
	}
	return t.base.RoundTrip(req)
}

// IndexExists reports whether the named index exists: GET <base>/<index>,
// where 200 means it exists and 404 means it does not.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+index, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("http get: %w", err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("index check returned HTTP %d", resp.StatusCode)
	}
}

// CreateIndex creates the named index: PUT <base>/<index> with a JSON mapping
// body declaring field types.
func (c *Client) CreateIndex(ctx context.Context, index, mapping string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/"+index, strings.NewReader(mapping))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http put: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("index create returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// EnsureIndex creates the index with the given mapping unless it already
// exists.
func (c *Client) EnsureIndex(ctx context.Context, index, mapping string) error {
	exists, err := c.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.CreateIndex(ctx, index, mapping)
}

// IndexDoc writes a single JSON document: POST <base>/<index>/_doc.
// Success is HTTP 200 or 201.
func (c *Client) IndexDoc(ctx context.Context, index string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+index+"/_doc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("document write returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Bulk submits a prepared NDJSON payload: POST <base>/_bulk with
// Content-Type application/x-ndjson. Success is HTTP 200 or 201; the response
// body is not inspected, so acceptance is batch-granular.
func (c *Client) Bulk(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/_bulk", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bulk write returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// drain discards the response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
