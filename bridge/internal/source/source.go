package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/ragpulse/ragpulse/bridge/internal/config"
)

// Result is the outcome of one successful poll of a single source.
type Result struct {
	SourceID string
	PolledAt time.Time

	// Samples maps metric name to the captured value.
	Samples map[string]float64

	// SkippedLines counts exposition lines dropped as malformed (wrong
	// token count or non-numeric value). Comment lines and labeled series
	// are not counted; skipping those is the capture policy, not a failure.
	SkippedLines int
}

// Source is the common interface implemented by every source kind.
// Poll fetches the endpoint once; a non-nil error means the whole poll
// failed and the source contributes nothing this cycle.
type Source interface {
	ID() string
	Poll(ctx context.Context) (*Result, error)
}

// New returns the appropriate Source for the given config entry.
// The HTTP client is built once and reused across polls; fetchTimeout is its
// hard ceiling (callers additionally bound each poll with a context).
func New(src config.Source, fetchTimeout time.Duration) (Source, error) {
	client := buildHTTPClient(src, fetchTimeout)
	switch src.Type {
	case "exposition":
		return &expositionSource{id: src.ID, url: src.URL, client: client}, nil
	case "promapi":
		return newPromAPISource(src.ID, src.URL, src.Metrics, client), nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", src.Type)
	}
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	src  config.Source
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.src.Auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.src.Auth.Header, t.src.Auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.src.Auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.src.Auth.Username, t.src.Auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS
// settings.
func buildHTTPClient(src config.Source, timeout time.Duration) *http.Client {
	transport := &authRoundTripper{
		base: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
			},
		},
		src: src,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// fetchText performs an HTTP GET and returns the response body as text.
// Any 2xx status is a successful fetch.
func fetchText(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
