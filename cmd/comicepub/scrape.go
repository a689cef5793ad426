package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuanying/comicepub/internal/config"
	"github.com/yuanying/comicepub/internal/epub"
	"github.com/yuanying/comicepub/internal/imageproc"
	"github.com/yuanying/comicepub/internal/pipeline"
	"github.com/yuanying/comicepub/internal/scraper"
)

type scrapeOptions struct {
	Start, End  int
	Pipeline    pipeline.Options
	Concurrency int
	Interval    time.Duration
	UserAgent   string
	Timeout     time.Duration
	ConvertPNG  bool
	Quality     int
	Logger      *slog.Logger
}

func newScrapeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <start> <end>",
		Short: "Download a range of chapters and pack each one as an EPUB",
		Long: `scrape processes chapters start through end inclusive. For every chapter
it downloads the page images referenced by the chapter URL, splits
landscape spreads, optionally converts opaque PNGs to JPEG and packs the
result in chapter order.

The --url and --title values contain %d where the chapter number goes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readScrapeOptions(cmd, args)
			if err != nil {
				return err
			}
			return runScrape(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.String("url", cfg.ChapterURL, "Chapter page URL with %d for the chapter number")
	flags.String("title", "Chapter %d", "Book title with %d for the chapter number")
	flags.StringP("author", "a", defaultAuthor, "Author of the books")
	flags.StringP("direction", "d", string(epub.RightToLeft), "Reading direction (ltr or rtl)")
	flags.StringArrayP("subject", "s", nil, "Subject of the books, may be repeated")
	flags.String("language", cfg.Language, "Language of the books")
	flags.IntP("level", "l", cfg.CompressionLevel, "Compression level [0-9]")
	flags.String("scrape-dir", cfg.ScrapeDir, "Directory receiving downloaded chapters")
	flags.String("output-dir", cfg.OutputDir, "Directory receiving the EPUB files")
	flags.Int("concurrency", cfg.Concurrency, "Simultaneous image downloads")
	flags.Duration("interval", cfg.RequestInterval, "Minimum delay between requests")
	flags.String("user-agent", cfg.UserAgent, "User-Agent header sent with requests")
	flags.Duration("timeout", cfg.HTTPTimeout, "Timeout of a single request")
	flags.Bool("convert-png", false, "Re-encode opaque PNGs as JPEG when smaller")
	flags.Int("quality", cfg.JPEGQuality, "JPEG quality for split and converted images [1-100]")
	return cmd
}

func readScrapeOptions(cmd *cobra.Command, args []string) (scrapeOptions, error) {
	logger, err := readLogger(cmd)
	if err != nil {
		return scrapeOptions{}, err
	}

	start, err := strconv.Atoi(args[0])
	if err != nil {
		return scrapeOptions{}, fmt.Errorf("start chapter must be a number, got %q", args[0])
	}
	end, err := strconv.Atoi(args[1])
	if err != nil {
		return scrapeOptions{}, fmt.Errorf("end chapter must be a number, got %q", args[1])
	}
	if start > end {
		return scrapeOptions{}, fmt.Errorf("start chapter %d is after end chapter %d", start, end)
	}

	flags := cmd.Flags()
	url, _ := flags.GetString("url")
	title, _ := flags.GetString("title")
	author, _ := flags.GetString("author")
	direction, _ := flags.GetString("direction")
	subjects, _ := flags.GetStringArray("subject")
	language, _ := flags.GetString("language")
	level, _ := flags.GetInt("level")
	scrapeDir, _ := flags.GetString("scrape-dir")
	outputDir, _ := flags.GetString("output-dir")
	concurrency, _ := flags.GetInt("concurrency")
	interval, _ := flags.GetDuration("interval")
	userAgent, _ := flags.GetString("user-agent")
	timeout, _ := flags.GetDuration("timeout")
	convertPNG, _ := flags.GetBool("convert-png")
	quality, _ := flags.GetInt("quality")

	switch {
	case url == "":
		return scrapeOptions{}, fmt.Errorf("--url is required (or set %sCHAPTER_URL)", config.Prefix)
	case !strings.Contains(url, "%d"):
		return scrapeOptions{}, fmt.Errorf("--url must contain %%d for the chapter number, got %q", url)
	case level < 0 || level > 9:
		return scrapeOptions{}, fmt.Errorf("--level must be between 0 and 9, got %d", level)
	case concurrency < 1:
		return scrapeOptions{}, fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
	case quality < 1 || quality > 100:
		return scrapeOptions{}, fmt.Errorf("--quality must be between 1 and 100, got %d", quality)
	case interval < 0:
		return scrapeOptions{}, fmt.Errorf("--interval must not be negative, got %s", interval)
	}

	return scrapeOptions{
		Start: start,
		End:   end,
		Pipeline: pipeline.Options{
			ChapterURL: url,
			Title:      title,
			Author:     author,
			Language:   language,
			Direction:  epub.ParseDirection(direction),
			Subjects:   subjects,
			ScrapeDir:  scrapeDir,
			OutputDir:  outputDir,
			Pack:       epub.PackOptions{CompressionLevel: level, Logger: logger},
			Logger:     logger,
		},
		Concurrency: concurrency,
		Interval:    interval,
		UserAgent:   userAgent,
		Timeout:     timeout,
		ConvertPNG:  convertPNG,
		Quality:     quality,
		Logger:      logger,
	}, nil
}

func runScrape(cmd *cobra.Command, opts scrapeOptions) error {
	client := scraper.New(scraper.Options{
		HTTPClient:  &http.Client{Timeout: opts.Timeout},
		UserAgent:   opts.UserAgent,
		Concurrency: opts.Concurrency,
		Interval:    opts.Interval,
		Logger:      opts.Logger,
	})
	imgOpts := imageproc.Options{JPEGQuality: opts.Quality, Logger: opts.Logger}

	var conv pipeline.Converter
	if opts.ConvertPNG {
		conv = imageproc.NewConvertPolicy(imgOpts)
	}
	p, err := pipeline.New(opts.Pipeline, client, imageproc.NewSplitter(imgOpts), conv)
	if err != nil {
		return err
	}

	results, err := p.Run(cmd.Context(), opts.Start, opts.End)
	if err != nil {
		return err
	}
	opts.Logger.Info("complete", "chapters", len(results), "output-dir", opts.Pipeline.OutputDir)
	return nil
}
