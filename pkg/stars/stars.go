// Package stars collects the starred repositories of a GitHub account with
// their on-disk size.
package stars

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/star-sizes/pkg/pagination"
)

// BytesPerKB converts GitHub's kilobyte size field to bytes.
const BytesPerKB = 1024

// ErrNotAnArray is returned for a page body whose top-level value is not a
// JSON array. json.Unmarshal accepts null into a slice, so it is checked
// before decoding.
var ErrNotAnArray = errors.New("response body is not a JSON array")

var recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "star_sizes_records_total",
	Help: "Total starred repositories collected",
})

// Record is one starred repository.
type Record struct {
	// Name is the owner/repo full name.
	Name string

	// SizeBytes is the provider-reported size converted to bytes.
	SizeBytes int64
}

// repository holds the two fields consumed from a GitHub repository object.
type repository struct {
	FullName string `json:"full_name"`
	Size     *int64 `json:"size"`
}

// DecodeError reports a page body that is not a JSON array of repositories.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode repositories: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodePage decodes one page of the starred collection. A null or missing
// size counts as zero.
func DecodePage(body []byte) ([]Record, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &DecodeError{Err: ErrNotAnArray}
	}

	var repos []repository
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, &DecodeError{Err: err}
	}

	records := make([]Record, 0, len(repos))
	for _, r := range repos {
		records = append(records, newRecord(r))
	}
	return records, nil
}

func newRecord(r repository) Record {
	var size int64
	if r.Size != nil && *r.Size > 0 {
		size = *r.Size * BytesPerKB
	}
	return Record{Name: r.FullName, SizeBytes: size}
}

// Endpoint returns the starred collection path: the authenticated user's
// stars when user is empty, the named user's public stars otherwise.
func Endpoint(user string) string {
	if user == "" {
		return "/user/starred"
	}
	return "/users/" + url.PathEscape(user) + "/starred"
}

// FetchAll walks the starred collection at endpoint until the first empty
// page and returns every record in page order. An empty result is not an
// error.
func FetchAll(ctx context.Context, fetcher pagination.PageFetcher, endpoint string, perPage int) ([]Record, error) {
	cfg := pagination.DefaultConfig()
	cfg.PerPage = perPage

	records, err := pagination.Collect(ctx, fetcher, endpoint, cfg, DecodePage)
	if err != nil {
		return nil, fmt.Errorf("fetch starred repositories: %w", err)
	}

	recordsTotal.Add(float64(len(records)))
	return records, nil
}
