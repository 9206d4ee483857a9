package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// promAPISource polls a Prometheus server's HTTP API instead of a raw
// exposition page: one instant query per series name, summed across the
// returned vector's series.
type promAPISource struct {
	id      string
	baseURL string
	metrics []string
	client  *http.Client

	mu         sync.Mutex
	discovered []string
}

func newPromAPISource(id, baseURL string, metrics []string, client *http.Client) *promAPISource {
	return &promAPISource{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		client:  client,
	}
}

func (s *promAPISource) ID() string { return s.id }

func (s *promAPISource) Poll(ctx context.Context) (*Result, error) {
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}

	samples := make(map[string]float64, len(names))
	for _, name := range names {
		value, ok, err := s.queryInstant(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}
		if ok {
			samples[name] = value
		}
	}
	return &Result{
		SourceID: s.id,
		PolledAt: time.Now().UTC(),
		Samples:  samples,
	}, nil
}

// names returns the configured series names. When the config left the list
// empty they are discovered from the server's label-values endpoint once and
// cached for the process lifetime.
func (s *promAPISource) names(ctx context.Context) ([]string, error) {
	if len(s.metrics) > 0 {
		return s.metrics, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discovered != nil {
		return s.discovered, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/api/v1/label/__name__/values", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discover metric names: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover metric names: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status string   `json:"status"`
		Data   []string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("discover metric names: decode: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("discover metric names: api status %q", body.Status)
	}

	s.discovered = body.Data
	return s.discovered, nil
}

// queryInstant runs one instant query and folds the vector result into a
// single value by summing across series. ok is false when the result is
// empty (series absent right now), which is not an error.
func (s *promAPISource) queryInstant(ctx context.Context, name string) (float64, bool, error) {
	q := s.baseURL + "/api/v1/query?query=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q, nil)
	if err != nil {
		return 0, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Result []struct {
				Value []json.RawMessage `json:"value"` // [unix_ts, "value"]
			} `json:"result"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false, fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "success" {
		return 0, false, fmt.Errorf("api status %q", body.Status)
	}
	if len(body.Data.Result) == 0 {
		return 0, false, nil
	}

	var total float64
	for _, r := range body.Data.Result {
		if len(r.Value) != 2 {
			continue
		}
		var raw string
		if err := json.Unmarshal(r.Value[1], &raw); err != nil {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total, true, nil
}
