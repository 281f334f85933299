// Package parser turns a catalog page into records and a best-effort next-page signal.
package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/tgcatalog/internal/models"
	"github.com/amosWeiskopf/tgcatalog/pkg/extractor"
	"github.com/amosWeiskopf/tgcatalog/pkg/utils"
)

const (
	// FullPageSize is the record count of a complete catalog page
	FullPageSize = 100

	// LastPageThreshold is the record count below which a page is taken as the last one
	LastPageThreshold = 50

	// MaxFallbackCards bounds the generic container scan on pages without card markup
	MaxFallbackCards = 100

	debugCards    = 3
	debugCardSize = 200

	cardSelector       = `div[class*="peer"], div[class*="channel"], div[class*="rating"], div[class*="card"], div[class*="chat"]`
	containerSelector  = `div`
	detailLinkSelector = `a[href*="/channel/"], a[href*="/chat/"]`
	pageLinkSelector   = `a[href*="page="]`
)

// Discovery names the strategy that located the cards of a page
type Discovery string

const (
	// DiscoveryCards means elements with card-like classes were found
	DiscoveryCards Discovery = "cards"

	// DiscoveryContainer means generic containers holding a detail link were used
	DiscoveryContainer Discovery = "containers"

	// DiscoveryNone means the page has no candidate cards
	DiscoveryNone Discovery = "none"
)

// Parser extracts records from catalog pages
type Parser struct {
	extractor *extractor.Extractor
	log       zerolog.Logger
}

// New creates a new Parser instance
func New(ex *extractor.Extractor, log zerolog.Logger) *Parser {
	return &Parser{extractor: ex, log: log}
}

// Parse extracts the records of one page and guesses whether another page follows.
// A page that cannot be parsed yields no records and no next page.
func (p *Parser) Parse(body, pageURL string) *models.Page {
	page := &models.Page{URL: pageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		p.log.Error().Err(err).Str("url", pageURL).Msg("failed to parse page")
		return page
	}

	p.log.Debug().Int("html_size", len(body)).Str("url", pageURL).Msg("parsing page")

	cards, discovery := p.FindCards(doc)
	p.log.Debug().Int("cards", cards.Length()).Str("discovery", string(discovery)).Msg("cards located")

	cards.Each(func(i int, card *goquery.Selection) {
		if i < debugCards && p.log.GetLevel() <= zerolog.DebugLevel {
			markup, _ := goquery.OuterHtml(card)
			p.log.Debug().Int("card", i+1).Str("html", utils.TruncateText(utils.CleanText(markup), debugCardSize)).Msg("card sample")
		}

		rec, ok, err := p.extract(card)
		if err != nil {
			p.log.Warn().Err(err).Int("card", i+1).Msg("failed to parse card")
			return
		}
		if !ok {
			return
		}
		page.Records = append(page.Records, rec)
	})

	page.HasNext = HasNext(doc, pageURL, len(page.Records))
	p.log.Info().Int("records", len(page.Records)).Bool("has_next", page.HasNext).Msg("page parsed")
	return page
}

// extract runs the extractor on one card, turning a panic into an error so a broken card
// never aborts the page
func (p *Parser) extract(card *goquery.Selection) (rec models.Record, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("card extraction panicked: %v", r)
		}
	}()
	rec, ok = p.extractor.Extract(card)
	return rec, ok, nil
}

// FindCards locates card fragments. Outermost elements with card-like classes are used when present;
// otherwise containers holding a channel/chat detail link are used, capped at MaxFallbackCards.
func (p *Parser) FindCards(doc *goquery.Document) (*goquery.Selection, Discovery) {
	cards := doc.Find(cardSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(cardSelector).Length() == 0
	})
	if cards.Length() > 0 {
		return cards, DiscoveryCards
	}

	containers := doc.Find(containerSelector)
	p.log.Debug().Int("containers", containers.Length()).Msg("no card markup, scanning containers")

	withLinks := containers.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(detailLinkSelector).Length() > 0
	})
	if withLinks.Length() == 0 {
		return withLinks, DiscoveryNone
	}
	if withLinks.Length() > MaxFallbackCards {
		withLinks = withLinks.Slice(0, MaxFallbackCards)
	}
	return withLinks, DiscoveryContainer
}

// HasNext guesses whether another page follows. A full page or any page-number link suggests
// more; a link to a later page confirms it; fewer than LastPageThreshold records overrides both.
func HasNext(doc *goquery.Document, pageURL string, records int) bool {
	pageLinks := doc.Find(pageLinkSelector)
	hasNext := records >= FullPageSize || pageLinks.Length() > 0

	current := utils.PageNumber(pageURL)
	maxPage := current
	pageLinks.Each(func(_ int, a *goquery.Selection) {
		for _, n := range utils.PageNumbers(a.AttrOr("href", "")) {
			if n > maxPage {
				maxPage = n
			}
		}
	})
	if maxPage > current {
		hasNext = true
	}

	if records < LastPageThreshold {
		hasNext = false
	}
	return hasNext
}
