package source

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// expositionSource polls a Prometheus text exposition endpoint.
type expositionSource struct {
	id     string
	url    string
	client *http.Client
}

func (s *expositionSource) ID() string { return s.id }

func (s *expositionSource) Poll(ctx context.Context) (*Result, error) {
	text, err := fetchText(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	samples, skipped := ParseExposition(text)
	return &Result{
		SourceID:     s.id,
		PolledAt:     time.Now().UTC(),
		Samples:      samples,
		SkippedLines: skipped,
	}, nil
}

// ParseExposition extracts bare `name value` samples from Prometheus text
// exposition. The capture policy is intentionally narrow:
//
//   - comment lines (leading '#') are skipped
//   - lines containing '{' (labeled series) are skipped
//   - lines that do not split into exactly two fields are skipped and counted
//   - lines whose second field does not parse as a float are skipped and counted
//
// Duplicate names resolve last-write-wins. The value grammar is whatever
// strconv.ParseFloat accepts, so scientific notation, Inf and NaN all pass.
// ParseExposition never fails: malformed input shrinks the result instead of
// aborting it, and the same text always yields the same map.
func ParseExposition(text string) (map[string]float64, int) {
	samples := make(map[string]float64)
	skipped := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "{") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			skipped++
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			skipped++
			continue
		}
		samples[fields[0]] = value
	}
	return samples, skipped
}
