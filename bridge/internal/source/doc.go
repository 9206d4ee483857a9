// Package source implements the pull side of the bridge: one Source per
// configured endpoint, each returning the samples captured by a single poll.
//
// Two source kinds exist. An "exposition" source fetches a Prometheus text
// exposition page and extracts bare `name value` samples with a deliberately
// narrow capture policy (ParseExposition). A "promapi" source queries a
// Prometheus server's instant-query API for a configured list of series
// names and folds each vector result into one value. Factory: New(cfg, ...)
// returns the correct Source for the config entry.
//
// Authentication (API key, bearer token, basic) is handled by the shared
// authRoundTripper; individual sources receive a pre-configured *http.Client
// from New.
package source
