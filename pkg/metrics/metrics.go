// Package metrics writes the star-sizes Prometheus metrics as a node_exporter
// textfile at the end of a run. The metrics themselves are defined in their
// respective packages (client, pagination, ratelimit, stars) and registered
// with the default registry via promauto.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer is the gatherer written by WriteTextfile.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - star_sizes_requests_total{status} (Counter): GitHub requests by HTTP status, "000" without a response
//   - star_sizes_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - star_sizes_errors_total{class} (Counter): Failures by class (client, server, rate_limit, network, unexpected_status)
//
// Collection Metrics (pkg/pagination, pkg/stars):
//   - star_sizes_pages_fetched_total (Counter): Pages fetched, including the terminating empty page
//   - star_sizes_records_total (Counter): Starred repositories collected
//
// Rate Limit Metrics (pkg/ratelimit):
//   - github_rate_limit_remaining (Gauge): Requests left in the current window
//   - github_rate_limit_low_total (Counter): Responses that reported a nearly exhausted quota
//
// Example Prometheus Queries (textfile collector):
//
//   # Runs that ended in a rate limit
//   increase(star_sizes_errors_total{class="rate_limit"}[1d])
//
//   # Quota left after the last run
//   github_rate_limit_remaining

// WriteTextfile writes every gathered metric to path in the Prometheus text
// exposition format. The file is replaced atomically. An empty path is a
// no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
