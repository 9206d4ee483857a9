// Package retry implements a bounded retry policy with linear backoff. The
// n-th failure waits n times the configured base before the next attempt, so
// the total added wait for N attempts never exceeds base * N*(N+1)/2.
package retry
