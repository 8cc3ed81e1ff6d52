package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/star-sizes/pkg/client"
	"github.com/Sternrassler/star-sizes/pkg/pagination"
)

// MaxBodyExcerpt caps the response body printed in a diagnostic.
const MaxBodyExcerpt = 4 << 10

// WriteDiagnostic prints err to w in the failure format: the failing page
// and status, then the response body excerpt and headers when a response
// was received.
func WriteDiagnostic(w io.Writer, err error) {
	if err == nil {
		return
	}

	var pageErr *pagination.PageError
	if !errors.As(err, &pageErr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(w, "error: fetching page %d interrupted\n", pageErr.Page)
		return
	}

	var httpErr *client.HTTPError
	var transportErr *client.TransportError
	switch {
	case errors.As(err, &httpErr):
		fmt.Fprintf(w, "error: fetching page %d failed: HTTP %d\n", pageErr.Page, httpErr.StatusCode)
		fmt.Fprintf(w, "body: %s\n", bodyExcerpt(httpErr.Body))
		writeHeaders(w, httpErr.Header)
		if httpErr.Class == client.ErrorClassRateLimit {
			fmt.Fprintln(w, rateLimitHint(httpErr))
		}
	case errors.As(err, &transportErr):
		fmt.Fprintf(w, "error: fetching page %d failed: HTTP %s\n", pageErr.Page, transportErr.Status())
		fmt.Fprintf(w, "cause: %v\n", transportErr.Err)
	default:
		fmt.Fprintf(w, "error: fetching page %d failed: %v\n", pageErr.Page, pageErr.Err)
	}
}

func bodyExcerpt(body []byte) string {
	text := strings.TrimRight(string(body), "\r\n")
	if text == "" {
		return "(empty)"
	}
	if len(text) > MaxBodyExcerpt {
		return text[:MaxBodyExcerpt] + fmt.Sprintf("... (%d bytes truncated)", len(text)-MaxBodyExcerpt)
	}
	return text
}

func writeHeaders(w io.Writer, header map[string][]string) {
	fmt.Fprintln(w, "headers:")

	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		fmt.Fprintf(w, "  %s: %s\n", key, strings.Join(header[key], ", "))
	}
}

func rateLimitHint(httpErr *client.HTTPError) string {
	state, ok := httpErr.RateLimit()
	if !ok || state.ResetAt.IsZero() {
		return "hint: rate limit exhausted"
	}
	return "hint: rate limit exhausted, resets at " + state.ResetAt.UTC().Format(time.RFC3339)
}
