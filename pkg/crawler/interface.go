package crawler

import (
	"context"
	"time"

	"github.com/amosWeiskopf/tgcatalog/internal/models"
)

// Fetcher retrieves one catalog page
type Fetcher interface {
	// Fetch returns the response for url. Implementations retry transient failures
	// themselves; a returned error means the page is lost.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// PageParser turns a fetched body into records
type PageParser interface {
	Parse(body, pageURL string) *models.Page
}

// Response is a fetched page with its body decoded to UTF-8
type Response struct {
	URL        string
	StatusCode int
	Body       string
}

// Options contains configuration for the crawler
type Options struct {
	BaseURL           string        // Catalog base URL
	DelayBase         time.Duration // Fixed pause before every fetch
	DelayJitter       time.Duration // Upper bound of the random pause added to DelayBase
	Timeout           time.Duration // Per-request timeout
	MaxAttempts       int           // Fetch attempts per page, including the first
	BackoffInitial    time.Duration // Wait after the first failed attempt
	BackoffMax        time.Duration // Cap on the wait between attempts
	RequestsPerSecond float64       // Ceiling on request attempts; 0 means unlimited
	RateLimitCooldown time.Duration // Pause after HTTP 429, plus up to the same amount of jitter
	Proxy             string        // Optional proxy URL
	RespectRobots     bool          // Check robots.txt before fetching
}

// DefaultOptions returns the settings the catalog tolerates without throttling
func DefaultOptions() Options {
	return Options{
		BaseURL:           "https://tgstat.ru",
		DelayBase:         800 * time.Millisecond,
		DelayJitter:       400 * time.Millisecond,
		Timeout:           30 * time.Second,
		MaxAttempts:       3,
		BackoffInitial:    2 * time.Second,
		BackoffMax:        10 * time.Second,
		RequestsPerSecond: 2,
		RateLimitCooldown: 5 * time.Second,
	}
}
