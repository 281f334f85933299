package models

import (
	"sort"
	"time"
)

// Kind classifies a catalog listing
type Kind string

const (
	KindChannel Kind = "channel"
	KindChat    Kind = "chat"
)

// ItemType is the catalog section being crawled, as it appears in rating URLs
type ItemType string

const (
	ItemChannels ItemType = "channels"
	ItemChats    ItemType = "chats"
)

// Valid reports whether t names a known catalog section
func (t ItemType) Valid() bool {
	return t == ItemChannels || t == ItemChats
}

// Record represents one catalog entry
type Record struct {
	Title       string `json:"title"`
	Subscribers int    `json:"subscribers"`
	Link        string `json:"link"`
	Kind        Kind   `json:"kind"`
}

// Key returns the deduplication tuple of the record
func (r Record) Key() RecordKey {
	return RecordKey{Title: r.Title, Subscribers: r.Subscribers, Link: r.Link}
}

// RecordKey is the (title, subscribers, link) tuple records are deduplicated by
type RecordKey struct {
	Title       string
	Subscribers int
	Link        string
}

// RecordSet accumulates unique records of a single kind
type RecordSet struct {
	kind  Kind
	items map[RecordKey]struct{}
}

// NewRecordSet creates an empty set for the given kind
func NewRecordSet(kind Kind) *RecordSet {
	return &RecordSet{
		kind:  kind,
		items: make(map[RecordKey]struct{}),
	}
}

// Kind returns the kind of records held by the set
func (s *RecordSet) Kind() Kind {
	return s.kind
}

// Add folds a record into the set and reports whether it was new
func (s *RecordSet) Add(r Record) bool {
	key := r.Key()
	if _, exists := s.items[key]; exists {
		return false
	}
	s.items[key] = struct{}{}
	return true
}

// Len returns the number of unique records
func (s *RecordSet) Len() int {
	return len(s.items)
}

// Sorted returns the records ordered by subscribers descending.
// Ties are ordered by title, then link, so output is reproducible.
func (s *RecordSet) Sorted() []Record {
	records := make([]Record, 0, len(s.items))
	for key := range s.items {
		records = append(records, Record{
			Title:       key.Title,
			Subscribers: key.Subscribers,
			Link:        key.Link,
			Kind:        s.kind,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Subscribers != records[j].Subscribers {
			return records[i].Subscribers > records[j].Subscribers
		}
		if records[i].Title != records[j].Title {
			return records[i].Title < records[j].Title
		}
		return records[i].Link < records[j].Link
	})
	return records
}

// Page is the outcome of parsing one catalog page
type Page struct {
	URL     string   `json:"url"`
	Records []Record `json:"records"`
	HasNext bool     `json:"has_next"`
}

// StopReason explains why a crawl ended
type StopReason string

const (
	StopBudget      StopReason = "budget"
	StopEmptyPage   StopReason = "empty_page"
	StopLastPage    StopReason = "last_page"
	StopInterrupted StopReason = "interrupted"
)

// CrawlResult contains the deduplicated records of one crawl run
type CrawlResult struct {
	Target       string     `json:"target"`
	Channels     *RecordSet `json:"-"`
	Chats        *RecordSet `json:"-"`
	PagesFetched int        `json:"pages_fetched"`
	StopReason   StopReason `json:"stop_reason"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// NewCrawlResult creates a result with empty channel and chat sets
func NewCrawlResult(target string) *CrawlResult {
	return &CrawlResult{
		Target:    target,
		Channels:  NewRecordSet(KindChannel),
		Chats:     NewRecordSet(KindChat),
		StartedAt: time.Now(),
	}
}

// Add folds a record into the set matching its kind
func (r *CrawlResult) Add(rec Record) bool {
	if rec.Kind == KindChannel {
		return r.Channels.Add(rec)
	}
	return r.Chats.Add(rec)
}

// Sets returns the per-kind sets in output order
func (r *CrawlResult) Sets() []*RecordSet {
	return []*RecordSet{r.Channels, r.Chats}
}
