package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/tgcatalog/internal/models"
	"github.com/amosWeiskopf/tgcatalog/pkg/utils"
)

const (
	// DefaultBaseURL is the catalog relative links are resolved against
	DefaultBaseURL = "https://tgstat.ru"

	// MinFallbackSubscribers is the smallest bare number accepted as a subscriber count
	// when the card has no number next to a subscriber word
	MinFallbackSubscribers = 100

	detailLinkSelector = `a[href*="/channel/"], a[href*="/chat/"]`
	titleSelector      = `h1, h2, h3, h4, h5, h6, [class*="title"]`
	countSelector      = `[class*="count"], [class*="members"], [class*="subscribers"]`
)

// Strategy is one way of turning a card into a record.
// ok is false when the card does not carry what the strategy needs.
type Strategy struct {
	Name    string
	Extract func(card *goquery.Selection) (rec models.Record, ok bool)
}

// Extractor turns catalog cards into records
type Extractor struct {
	baseURL    string
	log        zerolog.Logger
	strategies []Strategy

	titleCountRegex   *regexp.Regexp
	categoryTailRegex *regexp.Regexp
	subscribersRegex  *regexp.Regexp
	bigNumberRegex    *regexp.Regexp
	countTokenRegex   *regexp.Regexp
	mentionRegex      *regexp.Regexp
	detailPathRegex   *regexp.Regexp
}

// New creates a new Extractor instance. An empty baseURL means DefaultBaseURL.
func New(baseURL string, log zerolog.Logger) *Extractor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	e := &Extractor{
		baseURL:           strings.TrimSuffix(baseURL, "/"),
		log:               log,
		titleCountRegex:   regexp.MustCompile(`(?i)\d+[\d\s\x{00a0}\x{202f}]*(?:подписчик|участник)`),
		categoryTailRegex: regexp.MustCompile(`\s*[А-ЯЁ][а-яё]+ и [А-ЯЁ][А-ЯЁа-яё]+$`),
		subscribersRegex:  regexp.MustCompile(`(?i)(\d{1,3}(?:[\s\x{00a0}\x{202f}]\d{3})+|\d+(?:[.,]\d+)*[km]?)\s*(?:подписчик|участник|subscriber|member)`),
		bigNumberRegex:    regexp.MustCompile(`\d{1,3}(?:[\s\x{00a0}\x{202f}]\d{3})+|\d{3,}`),
		countTokenRegex:   regexp.MustCompile(`\d(?:[\d.,]|[\s\x{00a0}\x{202f}]\d)*(?:[KkMm]\b)?`),
		mentionRegex:      regexp.MustCompile(`(?:^|[^\w.])@(\w{3,32})`),
		detailPathRegex:   regexp.MustCompile(`/(channel|chat)/@([^/?#\s]+)`),
	}
	e.strategies = []Strategy{
		{Name: "structural", Extract: e.Structural},
		{Name: "link", Extract: e.LinkRegex},
	}
	return e
}

// BaseURL returns the catalog base URL
func (e *Extractor) BaseURL() string {
	return e.baseURL
}

// Strategies returns the extraction strategies in the order they are tried
func (e *Extractor) Strategies() []Strategy {
	return e.strategies
}

// Extract tries each strategy in order; the first record produced wins
func (e *Extractor) Extract(card *goquery.Selection) (models.Record, bool) {
	for _, s := range e.strategies {
		if rec, ok := s.Extract(card); ok {
			return rec, true
		}
	}
	return models.Record{}, false
}

// Structural reads the record from markup roles: a heading or title-classed element,
// a count-classed element and an anchor
func (e *Extractor) Structural(card *goquery.Selection) (models.Record, bool) {
	title := e.cleanTitle(card.Find(titleSelector).First().Text())
	if title == "" {
		return models.Record{}, false
	}

	anchor := card.Find(detailLinkSelector).First()
	if anchor.Length() == 0 {
		anchor = card.Find("a[href]").First()
	}
	href := strings.TrimSpace(anchor.AttrOr("href", ""))
	if href == "" {
		return models.Record{}, false
	}

	subscribers := 0
	if countText := card.Find(countSelector).First().Text(); countText != "" {
		subscribers = e.NormalizeSubscribers(e.countTokenRegex.FindString(countText))
	}

	return e.build(card, title, subscribers, href)
}

// LinkRegex reads the record from the first channel/chat detail link and regex scans of the card text
func (e *Extractor) LinkRegex(card *goquery.Selection) (models.Record, bool) {
	anchor := card.Find(detailLinkSelector).First()
	if anchor.Length() == 0 {
		return models.Record{}, false
	}

	href := strings.TrimSpace(anchor.AttrOr("href", ""))
	title := e.cleanTitle(anchor.Text())
	if title == "" || href == "" {
		return models.Record{}, false
	}

	return e.build(card, title, e.scanSubscribers(card.Text()), href)
}

func (e *Extractor) build(card *goquery.Selection, title string, subscribers int, href string) (models.Record, bool) {
	detailURL := utils.ResolveURL(e.baseURL, href)
	link := e.TelegramLink(card, detailURL)
	if link == "" {
		return models.Record{}, false
	}

	return models.Record{
		Title:       title,
		Subscribers: subscribers,
		Link:        link,
		Kind:        e.kindOf(detailURL, title),
	}, true
}

// cleanTitle drops a trailing subscriber count and a trailing "Xxx и Yyy" category label
func (e *Extractor) cleanTitle(raw string) string {
	title := utils.CleanText(raw)
	if loc := e.titleCountRegex.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	title = e.categoryTailRegex.ReplaceAllString(strings.TrimSpace(title), "")
	return strings.TrimSpace(title)
}

// scanSubscribers finds a number next to a subscriber word, falling back to the largest
// number of at least MinFallbackSubscribers in the text
func (e *Extractor) scanSubscribers(text string) int {
	if m := e.subscribersRegex.FindStringSubmatch(text); m != nil {
		return e.NormalizeSubscribers(m[1])
	}

	largest := 0
	for _, match := range e.bigNumberRegex.FindAllString(text, -1) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, match)
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n > largest {
			largest = n
		}
	}
	if largest >= MinFallbackSubscribers {
		return largest
	}
	return 0
}

func (e *Extractor) kindOf(detailURL, title string) models.Kind {
	if strings.Contains(detailURL, "/channel/") || utils.ContainsFold(title, "канал") {
		return models.KindChannel
	}
	return models.KindChat
}
