package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordSetDeduplicates(t *testing.T) {
	s := NewRecordSet(KindChannel)

	rec := Record{Title: "Новости", Subscribers: 1200, Link: "https://t.me/news", Kind: KindChannel}
	assert.True(t, s.Add(rec))
	assert.False(t, s.Add(rec))
	assert.Equal(t, 1, s.Len())

	// a different count on another page is a different tuple
	rec.Subscribers = 1201
	assert.True(t, s.Add(rec))
	assert.Equal(t, 2, s.Len())
}

func TestRecordSetSorted(t *testing.T) {
	s := NewRecordSet(KindChat)
	s.Add(Record{Title: "b", Subscribers: 10, Link: "https://t.me/b"})
	s.Add(Record{Title: "a", Subscribers: 500, Link: "https://t.me/a"})
	s.Add(Record{Title: "c", Subscribers: 10, Link: "https://t.me/c"})
	s.Add(Record{Title: "a", Subscribers: 10, Link: "https://t.me/a2"})

	got := s.Sorted()
	titles := make([]string, 0, len(got))
	for _, r := range got {
		titles = append(titles, r.Title)
		assert.Equal(t, KindChat, r.Kind)
	}
	assert.Equal(t, []string{"a", "a", "b", "c"}, titles)
	assert.Equal(t, 500, got[0].Subscribers)
	assert.Equal(t, "https://t.me/a2", got[1].Link)
}

func TestCrawlResultAddRoutesByKind(t *testing.T) {
	r := NewCrawlResult("news")

	r.Add(Record{Title: "x", Link: "https://t.me/x", Kind: KindChannel})
	r.Add(Record{Title: "y", Link: "https://t.me/y", Kind: KindChat})
	r.Add(Record{Title: "y", Link: "https://t.me/y", Kind: KindChat})

	assert.Equal(t, 1, r.Channels.Len())
	assert.Equal(t, 1, r.Chats.Len())
}

func TestItemTypeValid(t *testing.T) {
	assert.True(t, ItemChannels.Valid())
	assert.True(t, ItemChats.Valid())
	assert.False(t, ItemType("bots").Valid())
}
