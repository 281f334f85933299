// Package crawler walks catalog pages in order, fetching, parsing and folding records
// into per-kind sets until the page budget or the catalog runs out.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/tgcatalog/internal/models"
	"github.com/amosWeiskopf/tgcatalog/pkg/utils"
)

// Target names what to crawl: an explicit catalog URL, or a category code of an item type
type Target struct {
	URL      string
	Category string
	ItemType models.ItemType
}

func (t Target) String() string {
	if t.URL != "" {
		return t.URL
	}
	return fmt.Sprintf("%s/%s", t.itemType(), t.Category)
}

func (t Target) itemType() models.ItemType {
	if t.ItemType == "" {
		return models.ItemChannels
	}
	return t.ItemType
}

// BuildURL returns the URL of the given 1-based page. An explicit target URL gets its page
// parameter replaced or appended; a category becomes <base>/ratings/<type>/<category>?page=N.
func BuildURL(baseURL string, target Target, page int) string {
	if target.URL != "" {
		return utils.SetPageParam(target.URL, page)
	}
	return fmt.Sprintf("%s/ratings/%s/%s?page=%d", strings.TrimSuffix(baseURL, "/"), target.itemType(), target.Category, page)
}

// Crawler runs one sequential catalog crawl
type Crawler struct {
	fetcher Fetcher
	parser  PageParser
	pacer   *Pacer
	baseURL string
	log     zerolog.Logger
}

// New creates a new Crawler instance
func New(fetcher Fetcher, parser PageParser, opts Options, log zerolog.Logger) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		parser:  parser,
		pacer:   NewPacer(opts.DelayBase, opts.DelayJitter),
		baseURL: opts.BaseURL,
		log:     log,
	}
}

// Crawl visits pages 1..pages of target, stopping early on a page without records or when
// a page that is not the last requested one reports no successor. On cancellation it returns
// what was collected so far together with the context error.
func (c *Crawler) Crawl(ctx context.Context, target Target, pages int) (*models.CrawlResult, error) {
	result := models.NewCrawlResult(target.String())
	result.StopReason = models.StopBudget

	c.log.Info().Str("target", result.Target).Int("pages", pages).Msg("starting crawl")

	for n := 1; n <= pages; n++ {
		pageURL := BuildURL(c.baseURL, target, n)
		c.log.Info().Int("page", n).Int("of", pages).Str("url", pageURL).Msg("crawling page")

		if err := c.pacer.Wait(ctx); err != nil {
			return c.interrupted(result, err)
		}

		page := c.fetchPage(ctx, pageURL)
		if err := ctx.Err(); err != nil {
			return c.interrupted(result, err)
		}
		result.PagesFetched++

		if len(page.Records) == 0 {
			c.log.Warn().Int("page", n).Msg("no records on page, stopping")
			result.StopReason = models.StopEmptyPage
			break
		}

		added := 0
		for _, rec := range page.Records {
			if result.Add(rec) {
				added++
			}
		}
		c.log.Info().
			Int("page", n).
			Int("records", len(page.Records)).
			Int("new", added).
			Int("channels", result.Channels.Len()).
			Int("chats", result.Chats.Len()).
			Msg("page folded")

		if !page.HasNext && n < pages {
			c.log.Info().Int("page", n).Msg("reached last page")
			result.StopReason = models.StopLastPage
			break
		}
	}

	result.FinishedAt = time.Now()
	c.log.Info().
		Int("channels", result.Channels.Len()).
		Int("chats", result.Chats.Len()).
		Str("stop_reason", string(result.StopReason)).
		Msg("crawl finished")
	return result, nil
}

// fetchPage never fails: fetch errors and non-200 answers become a page without records
func (c *Crawler) fetchPage(ctx context.Context, pageURL string) *models.Page {
	empty := &models.Page{URL: pageURL}

	resp, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error().Err(err).Str("url", pageURL).Msg("failed to fetch page")
		}
		return empty
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("url", pageURL).Msg("page not available")
		return empty
	}
	return c.parser.Parse(resp.Body, pageURL)
}

func (c *Crawler) interrupted(result *models.CrawlResult, err error) (*models.CrawlResult, error) {
	result.StopReason = models.StopInterrupted
	result.FinishedAt = time.Now()
	c.log.Warn().
		Int("channels", result.Channels.Len()).
		Int("chats", result.Chats.Len()).
		Msg("crawl interrupted")
	return result, err
}
