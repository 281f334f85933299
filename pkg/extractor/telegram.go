package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	telegramPrefix = "https://t.me/"

	// ProvenanceSuffix marks a link that points at the catalog detail page instead of Telegram
	ProvenanceSuffix = " (tgstat)"
)

// TelegramLink resolves the best available link for a card, in priority order:
// a direct t.me anchor, a data-username attribute, an @username in the card text,
// a username embedded in the catalog detail URL, and finally the detail URL itself
// with ProvenanceSuffix. It returns "" only when detailURL is empty and nothing else matched.
func (e *Extractor) TelegramLink(card *goquery.Selection, detailURL string) string {
	var link string

	withSelf(card, `a[href*="t.me"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if strings.HasPrefix(href, telegramPrefix) {
			link = href
			return false
		}
		return true
	})
	if link != "" {
		return link
	}

	withSelf(card, "[data-username]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		username := strings.TrimLeft(strings.TrimSpace(s.AttrOr("data-username", "")), "@")
		if username != "" {
			link = telegramPrefix + username
			return false
		}
		return true
	})
	if link != "" {
		return link
	}

	if m := e.mentionRegex.FindStringSubmatch(card.Text()); m != nil {
		return telegramPrefix + m[1]
	}

	if detailURL == "" {
		return ""
	}
	if m := e.detailPathRegex.FindStringSubmatch(detailURL); m != nil {
		return telegramPrefix + m[2]
	}
	return detailURL + ProvenanceSuffix
}

// withSelf matches selector against the card and its descendants
func withSelf(card *goquery.Selection, selector string) *goquery.Selection {
	return card.Filter(selector).AddSelection(card.Find(selector))
}
