package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/tgcatalog/internal/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of the CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{"title", "subscribers", "link"}

// Summary formats
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Reporter writes crawl results to disk and renders run summaries
type Reporter struct {
	outputDir string
	log       zerolog.Logger
}

// New creates a new Reporter instance writing into outputDir
func New(outputDir string, log zerolog.Logger) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		log:       log,
	}
}

// FileName returns the CSV file name used for a kind
func FileName(kind models.Kind) string {
	if kind == models.KindChannel {
		return "channels.csv"
	}
	return "chats.csv"
}

// PathFor returns where the CSV of a kind is written
func (r *Reporter) PathFor(kind models.Kind) string {
	return filepath.Join(r.outputDir, FileName(kind))
}

// WriteCSV writes the BOM, the header row and one row per record
func WriteCSV(w io.Writer, records []models.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.Title, strconv.Itoa(rec.Subscribers), rec.Link}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSet writes one set sorted by subscribers descending. An empty set writes
// nothing and returns an empty path.
func (r *Reporter) WriteSet(set *models.RecordSet) (string, error) {
	if set.Len() == 0 {
		return "", nil
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := r.PathFor(set.Kind())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, set.Sorted()); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	r.log.Info().Str("file", path).Int("records", set.Len()).Msg("results saved")
	return path, nil
}

// WriteAll writes channels.csv and chats.csv, skipping empty kinds, and returns the written paths
func (r *Reporter) WriteAll(result *models.CrawlResult) ([]string, error) {
	var paths []string
	for _, set := range result.Sets() {
		path, err := r.WriteSet(set)
		if err != nil {
			return paths, err
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// KindSummary is one line of a run summary
type KindSummary struct {
	Kind    models.Kind `json:"kind"`
	Records int         `json:"records"`
	File    string      `json:"file,omitempty"`
}

// RunSummary describes a finished crawl
type RunSummary struct {
	Target       string            `json:"target"`
	PagesFetched int               `json:"pages_fetched"`
	StopReason   models.StopReason `json:"stop_reason"`
	Duration     time.Duration     `json:"duration_ns"`
	Kinds        []KindSummary     `json:"kinds"`
}

// Summarize collects the per-kind counts and output files of a result
func (r *Reporter) Summarize(result *models.CrawlResult) RunSummary {
	s := RunSummary{
		Target:       result.Target,
		PagesFetched: result.PagesFetched,
		StopReason:   result.StopReason,
	}
	if !result.FinishedAt.IsZero() {
		s.Duration = result.FinishedAt.Sub(result.StartedAt)
	}
	for _, set := range result.Sets() {
		ks := KindSummary{Kind: set.Kind(), Records: set.Len()}
		if set.Len() > 0 {
			ks.File = r.PathFor(set.Kind())
		}
		s.Kinds = append(s.Kinds, ks)
	}
	return s
}

// Summary renders the run summary in the requested format
func (r *Reporter) Summary(result *models.CrawlResult, format string) (string, error) {
	s := r.Summarize(result)

	if format == FormatJSON {
		return generateJSON(s)
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Kind", "Records", "File"})
	total := 0
	for _, k := range s.Kinds {
		t.AppendRow(table.Row{k.Kind, k.Records, k.File})
		total += k.Records
	}
	t.AppendFooter(table.Row{"total", total, fmt.Sprintf("%d pages, %s", s.PagesFetched, s.StopReason)})
	return render(t, format)
}

// Records renders records in the requested format
func Records(records []models.Record, format string) (string, error) {
	if format == FormatJSON {
		return generateJSON(records)
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Kind", "Title", "Subscribers", "Link"})
	for i, rec := range records {
		t.AppendRow(table.Row{i + 1, rec.Kind, rec.Title, rec.Subscribers, rec.Link})
	}
	return render(t, format)
}

func render(t table.Writer, format string) (string, error) {
	switch format {
	case FormatTable, "":
		t.SetStyle(table.StyleRounded)
		return t.Render(), nil
	case FormatMarkdown:
		return t.RenderMarkdown(), nil
	case FormatCSV:
		return t.RenderCSV(), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func generateJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}
