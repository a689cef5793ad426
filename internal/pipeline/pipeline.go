// Package pipeline turns a range of web comic chapters into EPUB files:
// each chapter is downloaded, its spreads are split, PNGs are optionally
// converted and the pages are packed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuanying/comicepub/internal/epub"
)

// chapterVerb is replaced by the chapter number in URL and title templates.
const chapterVerb = "%d"

const defaultTitle = "Chapter %d"

// Downloader fetches the images of one chapter page into a directory.
type Downloader interface {
	Download(ctx context.Context, pageURL, dir string) ([]string, error)
}

// Splitter splits landscape spreads in a directory.
type Splitter interface {
	SplitDir(dir string) (int, error)
}

// Converter re-encodes images in a directory.
type Converter interface {
	ConvertDir(dir string) (int, error)
}

// Options configures a Pipeline.
type Options struct {
	// ChapterURL is the chapter page URL with %d for the chapter number.
	ChapterURL string
	// Title is the book title with %d for the chapter number. Without %d
	// the number is appended.
	Title     string
	Author    string
	Language  string
	Direction epub.Direction
	Subjects  []string

	ScrapeDir string
	OutputDir string
	Pack      epub.PackOptions
	Logger    *slog.Logger
}

// Pipeline processes chapters one after another.
type Pipeline struct {
	opts       Options
	downloader Downloader
	splitter   Splitter
	converter  Converter
}

// Result describes one packed chapter.
type Result struct {
	Chapter int
	Dir     string
	Output  string
	Book    *epub.Book
}

// New creates a Pipeline. converter may be nil to keep images as
// downloaded.
func New(opts Options, d Downloader, s Splitter, c Converter) (*Pipeline, error) {
	if !strings.Contains(opts.ChapterURL, chapterVerb) {
		return nil, fmt.Errorf("chapter url %q must contain %s for the chapter number", opts.ChapterURL, chapterVerb)
	}
	if d == nil || s == nil {
		return nil, errors.New("pipeline: downloader and splitter are required")
	}
	if opts.Title == "" {
		opts.Title = defaultTitle
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts, downloader: d, splitter: s, converter: c}, nil
}

// ChapterTitle returns the book title of chapter n.
func (p *Pipeline) ChapterTitle(n int) string {
	num := strconv.Itoa(n)
	if strings.Contains(p.opts.Title, chapterVerb) {
		return strings.ReplaceAll(p.opts.Title, chapterVerb, num)
	}
	return p.opts.Title + " " + num
}

// ChapterURL returns the page URL of chapter n.
func (p *Pipeline) ChapterURL(n int) string {
	return strings.ReplaceAll(p.opts.ChapterURL, chapterVerb, strconv.Itoa(n))
}

// ChapterDir returns the download directory of chapter n, for example
// scraped/one-piece-colored-5.
func (p *Pipeline) ChapterDir(n int) string {
	return filepath.Join(p.opts.ScrapeDir, Slug(p.ChapterTitle(n), '-'))
}

// OutputPath returns the EPUB path of chapter n, for example
// output/one_piece_colored_5.epub.
func (p *Pipeline) OutputPath(n int) string {
	return filepath.Join(p.opts.OutputDir, Slug(p.ChapterTitle(n), '_')+".epub")
}

// RunChapter downloads, prepares and packs chapter n.
func (p *Pipeline) RunChapter(ctx context.Context, n int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := p.opts.Logger.With("chapter", n)
	res := &Result{Chapter: n, Dir: p.ChapterDir(n), Output: p.OutputPath(n)}

	log.Info("scraping chapter", "url", p.ChapterURL(n))
	images, err := p.downloader.Download(ctx, p.ChapterURL(n), res.Dir)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: download: %w", n, err)
	}
	log.Info("downloaded images", "count", len(images), "dir", res.Dir)

	if _, err := p.splitter.SplitDir(res.Dir); err != nil {
		return nil, fmt.Errorf("chapter %d: split: %w", n, err)
	}
	if p.converter != nil {
		if _, err := p.converter.ConvertDir(res.Dir); err != nil {
			return nil, fmt.Errorf("chapter %d: convert: %w", n, err)
		}
	}

	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("chapter %d: create output dir: %w", n, err)
	}
	meta := epub.Metadata{
		Title:     p.ChapterTitle(n),
		Author:    p.opts.Author,
		Language:  p.opts.Language,
		Direction: p.opts.Direction,
		Subjects:  p.opts.Subjects,
	}
	packOpts := p.opts.Pack
	if packOpts.Logger == nil {
		packOpts.Logger = log
	}
	book, err := epub.Pack(epub.Source{Dir: res.Dir, Order: epub.ChapterPageOrder}, meta, res.Output, packOpts)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: pack: %w", n, err)
	}
	res.Book = book

	log.Info("saved epub", "output", res.Output, "pages", len(book.Pages))
	return res, nil
}

// Run processes chapters start through end inclusive and stops at the
// first failure.
func (p *Pipeline) Run(ctx context.Context, start, end int) ([]*Result, error) {
	if start > end {
		return nil, fmt.Errorf("start chapter %d is after end chapter %d", start, end)
	}
	results := make([]*Result, 0, end-start+1)
	for n := start; n <= end; n++ {
		res, err := p.RunChapter(ctx, n)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
