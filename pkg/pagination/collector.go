package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// MaxPerPage is the largest page size GitHub accepts.
const MaxPerPage = 100

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "star_sizes_pages_fetched_total",
	Help: "Total collection pages fetched, including the terminating empty page",
})

// ErrMaxPagesReached is returned when Config.MaxPages pages were fetched
// without reaching an empty page.
var ErrMaxPagesReached = errors.New("maximum page count reached before end of collection")

// Config holds collector configuration.
type Config struct {
	// PerPage is the page size sent as per_page (1..MaxPerPage).
	PerPage int

	// StartPage is the first page cursor (default 1).
	StartPage int

	// MaxPages bounds the number of requests. 0 means unbounded.
	MaxPages int
}

// DefaultConfig returns the largest page size starting at page 1, unbounded.
func DefaultConfig() Config {
	return Config{
		PerPage:   MaxPerPage,
		StartPage: 1,
	}
}

// Validate checks the page size and bounds.
func (c Config) Validate() error {
	if c.PerPage < 1 || c.PerPage > MaxPerPage {
		return fmt.Errorf("per_page must be between 1 and %d (got %d)", MaxPerPage, c.PerPage)
	}
	if c.StartPage < 0 {
		return fmt.Errorf("start page must be >= 1 (got %d)", c.StartPage)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must be >= 0 (got %d)", c.MaxPages)
	}
	return nil
}

// PageFetcher fetches a single page of a collection and returns the raw body.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, page, perPage int) ([]byte, error)
}

// DecodeFunc turns one page body into its items.
type DecodeFunc[T any] func(body []byte) ([]T, error)

// PageError attaches the page cursor to a fetch or decode failure.
type PageError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// Collect fetches pages in order and accumulates their items until a page
// decodes to zero items. An empty collection returns a nil slice and no
// error. On any failure the items gathered so far are discarded.
func Collect[T any](ctx context.Context, fetcher PageFetcher, endpoint string, cfg Config, decode DecodeFunc[T]) ([]T, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StartPage == 0 {
		cfg.StartPage = 1
	}

	start := time.Now()
	logger := log.With().Str("component", "pagination").Str("endpoint", endpoint).Logger()

	var items []T
	fetched := 0

	for page := cfg.StartPage; ; page++ {
		if cfg.MaxPages > 0 && fetched >= cfg.MaxPages {
			return nil, &PageError{Page: page, Err: ErrMaxPagesReached}
		}

		if err := ctx.Err(); err != nil {
			return nil, &PageError{Page: page, Err: err}
		}

		body, err := fetcher.FetchPage(ctx, endpoint, page, cfg.PerPage)
		if err != nil {
			logger.Debug().Err(err).Int("page", page).Msg("Page fetch failed")
			return nil, &PageError{Page: page, Err: err}
		}
		fetched++
		pagesFetchedTotal.Inc()

		pageItems, err := decode(body)
		if err != nil {
			logger.Debug().Err(err).Int("page", page).Msg("Page decode failed")
			return nil, &PageError{Page: page, Err: err}
		}

		logger.Debug().
			Int("page", page).
			Int("items", len(pageItems)).
			Msg("Page fetched")

		if len(pageItems) == 0 {
			break
		}
		items = append(items, pageItems...)
	}

	logger.Info().
		Int("pages", fetched).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Collection exhausted")

	return items, nil
}
