package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/tgcatalog/internal/models"
)

func sampleResult() *models.CrawlResult {
	result := models.NewCrawlResult("channels/tech")
	result.Add(models.Record{Title: "Small", Subscribers: 10, Link: "https://t.me/small", Kind: models.KindChannel})
	result.Add(models.Record{Title: "Big, Inc", Subscribers: 5000, Link: "https://t.me/big", Kind: models.KindChannel})
	result.Add(models.Record{Title: "Mid", Subscribers: 300, Link: "https://tgstat.ru/channel/x (tgstat)", Kind: models.KindChannel})
	result.PagesFetched = 2
	result.StopReason = models.StopLastPage
	result.FinishedAt = result.StartedAt.Add(3 * time.Second)
	return result
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	records := []models.Record{
		{Title: `Quote "q", comma`, Subscribers: 12, Link: "https://t.me/q"},
	}
	require.NoError(t, WriteCSV(&buf, records))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"title", "subscribers", "link"},
		{`Quote "q", comma`, "12", "https://t.me/q"},
	}, rows)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	r := New(dir, zerolog.Nop())

	paths, err := r.WriteAll(sampleResult())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "channels.csv")}, paths)

	_, err = os.Stat(filepath.Join(dir, "chats.csv"))
	assert.True(t, os.IsNotExist(err), "empty kinds must not produce a file")

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"title", "subscribers", "link"}, rows[0])
	assert.Equal(t, []string{"Big, Inc", "5000", "https://t.me/big"}, rows[1])
	assert.Equal(t, []string{"Mid", "300", "https://tgstat.ru/channel/x (tgstat)"}, rows[2])
	assert.Equal(t, []string{"Small", "10", "https://t.me/small"}, rows[3])
}

func TestWriteAllNothingCollected(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := New(dir, zerolog.Nop()).WriteAll(models.NewCrawlResult("x"))
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSummary(t *testing.T) {
	r := New("out", zerolog.Nop())
	result := sampleResult()

	tests := []struct {
		format string
		want   []string
	}{
		{format: FormatTable, want: []string{"KIND", "channel", "chat", filepath.Join("out", "channels.csv"), "LAST_PAGE"}},
		{format: FormatMarkdown, want: []string{"| Kind | Records | File |", "| channel | 3 |"}},
		{format: FormatCSV, want: []string{"Kind,Records,File", "channel,3,"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := r.Summary(result, tt.format)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}

	_, err := r.Summary(result, "html")
	assert.EqualError(t, err, "unsupported format: html")
}

func TestSummaryJSON(t *testing.T) {
	out, err := New("out", zerolog.Nop()).Summary(sampleResult(), FormatJSON)
	require.NoError(t, err)

	var s RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "channels/tech", s.Target)
	assert.Equal(t, models.StopLastPage, s.StopReason)
	assert.Equal(t, 3*time.Second, s.Duration)
	assert.Equal(t, []KindSummary{
		{Kind: models.KindChannel, Records: 3, File: filepath.Join("out", "channels.csv")},
		{Kind: models.KindChat, Records: 0},
	}, s.Kinds)
}

func TestRecords(t *testing.T) {
	records := []models.Record{
		{Title: "Tech News", Subscribers: 12345, Link: "https://t.me/technews", Kind: models.KindChannel},
	}

	out, err := Records(records, FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, out, "| 1 | channel | Tech News | 12345 | https://t.me/technews |")

	out, err = Records(nil, FormatTable)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "TITLE"))

	_, err = Records(records, "yaml")
	assert.Error(t, err)
}
