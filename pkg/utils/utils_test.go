package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Канал новостей", CleanText("  Канал\n\t новостей  "))
	assert.Equal(t, "12 345", CleanText("12 345"))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "Привет...", TruncateText("Привет мир и всё", 8))
	assert.Equal(t, "abcdefgh...", TruncateText("abcdefghijkl", 8))
}

func TestSetPageParam(t *testing.T) {
	tests := []struct {
		name string
		url  string
		page int
		want string
	}{
		{"append without query", "https://tgstat.ru/ratings/channels/news", 2, "https://tgstat.ru/ratings/channels/news?page=2"},
		{"append to query", "https://tgstat.ru/ratings/channels/news?sort=members", 3, "https://tgstat.ru/ratings/channels/news?sort=members&page=3"},
		{"replace existing", "https://tgstat.ru/ratings/chats/tech?page=7&sort=x", 1, "https://tgstat.ru/ratings/chats/tech?page=1&sort=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SetPageParam(tt.url, tt.page))
		})
	}
}

func TestPageNumber(t *testing.T) {
	assert.Equal(t, 1, PageNumber("https://tgstat.ru/ratings/channels/news"))
	assert.Equal(t, 4, PageNumber("https://tgstat.ru/ratings/channels/news?page=4"))
	assert.Equal(t, []int{2, 3}, PageNumbers("/x?page=2&page=3"))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://tgstat.ru/channel/@news", ResolveURL("https://tgstat.ru", "/channel/@news"))
	assert.Equal(t, "https://t.me/x", ResolveURL("https://tgstat.ru", "https://t.me/x"))
}
