package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/tgcatalog/internal/config"
	"github.com/amosWeiskopf/tgcatalog/internal/logger"
	"github.com/amosWeiskopf/tgcatalog/internal/models"
	"github.com/amosWeiskopf/tgcatalog/pkg/crawler"
	"github.com/amosWeiskopf/tgcatalog/pkg/extractor"
	"github.com/amosWeiskopf/tgcatalog/pkg/parser"
	"github.com/amosWeiskopf/tgcatalog/pkg/reporter"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tgcatalog",
		Short: "tgcatalog - Telegram catalog scraper",
		Long: `tgcatalog walks the paginated channel and chat ratings of a Telegram catalog site
and exports the deduplicated channels and chats to CSV.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
	}

	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a catalog category and export channels.csv and chats.csv",
		Example: `  tgcatalog crawl --category tech --pages 3
  tgcatalog crawl --url "https://tgstat.ru/ratings/chats/travel" --type chats
  tgcatalog crawl --category news --self-check`,
		Args: cobra.NoArgs,
		RunE: runCrawl,
	}

	parseCmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a saved catalog page and print the extracted records",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}

	// Crawl command flags
	crawlCmd.Flags().String("url", "", "Direct catalog URL")
	crawlCmd.Flags().String("category", "", "Category code, e.g. news or travel")
	crawlCmd.Flags().String("type", "channels", "Catalog type for --category (channels, chats)")
	crawlCmd.Flags().Int("pages", 1, "Maximum number of pages to crawl")
	crawlCmd.Flags().String("outdir", "./output", "Directory for the CSV files")
	crawlCmd.Flags().Float64("delay", 0.8, "Base delay between requests in seconds")
	crawlCmd.Flags().String("proxy", "", "Proxy URL for all requests")
	crawlCmd.Flags().Bool("self-check", false, "Quick check on the first page only")
	crawlCmd.Flags().Bool("respect-robots", false, "Skip URLs disallowed by robots.txt")
	crawlCmd.Flags().String("format", "table", "Summary format (table, markdown, csv, json)")

	// Parse command flags
	parseCmd.Flags().String("page-url", "", "URL the page was saved from (defaults to the catalog base URL)")
	parseCmd.Flags().String("format", "table", "Output format (table, markdown, csv, json)")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(parseCmd)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "logs/app.log", "Log file path, empty to disable")

	return rootCmd
}

// loadConfig reads the configuration and lays explicitly set flags over it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	setString := func(name string, dst *string) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	setString("log-level", &cfg.Logging.Level)
	setString("log-file", &cfg.Logging.File)
	setString("url", &cfg.Catalog.URL)
	setString("category", &cfg.Catalog.Category)
	setString("type", &cfg.Catalog.ItemType)
	setString("outdir", &cfg.Output.Dir)
	setString("proxy", &cfg.Crawler.Proxy)
	setString("format", &cfg.Output.Format)

	if flags.Lookup("pages") != nil && flags.Changed("pages") {
		cfg.Crawler.Pages, _ = flags.GetInt("pages")
	}
	if flags.Lookup("delay") != nil && flags.Changed("delay") {
		secs, _ := flags.GetFloat64("delay")
		if secs < 0 {
			return fmt.Errorf("--delay must not be negative")
		}
		cfg.Crawler.DelayBase = time.Duration(secs * float64(time.Second))
	}
	if flags.Lookup("respect-robots") != nil && flags.Changed("respect-robots") {
		cfg.Crawler.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if selfCheck, _ := flags.GetBool("self-check"); selfCheck {
		cfg.Crawler.Pages = 1
	}
	return nil
}

func crawlerOptions(cfg *config.Config) crawler.Options {
	return crawler.Options{
		BaseURL:           cfg.Catalog.BaseURL,
		DelayBase:         cfg.Crawler.DelayBase,
		DelayJitter:       cfg.Crawler.DelayJitter,
		Timeout:           cfg.Crawler.Timeout,
		MaxAttempts:       cfg.Crawler.MaxAttempts,
		BackoffInitial:    cfg.Crawler.BackoffInitial,
		BackoffMax:        cfg.Crawler.BackoffMax,
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		RateLimitCooldown: cfg.Crawler.RateLimitCooldown,
		Proxy:             cfg.Crawler.Proxy,
		RespectRobots:     cfg.Crawler.RespectRobots,
	}
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	log, closer, err := logger.New(cfg.Logging.Level, cfg.Logging.File, cmd.ErrOrStderr())
	if err != nil {
		return log, closer, fmt.Errorf("failed to open log file: %w", err)
	}
	return log, closer, nil
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTarget(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closer, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if selfCheck, _ := cmd.Flags().GetBool("self-check"); selfCheck {
		log.Info().Msg("self-check mode: crawling the first page only")
	}

	opts := crawlerOptions(cfg)
	fetcher, err := crawler.NewHTTPFetcher(opts, log.With().Str("component", "fetcher").Logger())
	if err != nil {
		return err
	}
	ex := extractor.New(cfg.Catalog.BaseURL, log.With().Str("component", "extractor").Logger())
	p := parser.New(ex, log.With().Str("component", "parser").Logger())
	c := crawler.New(fetcher, p, opts, log.With().Str("component", "crawler").Logger())

	target := crawler.Target{
		URL:      cfg.Catalog.URL,
		Category: cfg.Catalog.Category,
		ItemType: models.ItemType(cfg.Catalog.ItemType),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := c.Crawl(ctx, target, cfg.Crawler.Pages)
	if err != nil {
		if !errors.Is(err, context.Canceled) || result == nil {
			log.Error().Err(err).Msg("crawl failed")
			return err
		}
		log.Warn().Msg("interrupted by user, saving collected records")
	}

	rep := reporter.New(cfg.Output.Dir, log)
	if _, err := rep.WriteAll(result); err != nil {
		log.Error().Err(err).Msg("failed to save results")
		return err
	}

	summary, err := rep.Summary(result, cfg.Output.Format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closer, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	body, err := crawler.DecodeBody(raw, "")
	if err != nil {
		return fmt.Errorf("failed to decode page: %w", err)
	}

	pageURL, _ := cmd.Flags().GetString("page-url")
	if pageURL == "" {
		pageURL = cfg.Catalog.BaseURL
	}

	p := parser.New(extractor.New(cfg.Catalog.BaseURL, log), log)
	page := p.Parse(body, pageURL)

	out, err := reporter.Records(page.Records, cfg.Output.Format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	fmt.Fprintf(cmd.OutOrStdout(), "records: %d, next page: %t\n", len(page.Records), page.HasNext)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
