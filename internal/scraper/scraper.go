// Package scraper fetches a chapter page, extracts its page image URLs and
// downloads them.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultConcurrency     = 4
	defaultUserAgent       = "comicepub/1.0"
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = time.Hour
)

// DefaultExtensions lists the image extensions collected from a page.
var DefaultExtensions = []string{".jpg", ".jpeg"}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	UserAgent  string
	// Concurrency bounds simultaneous image downloads.
	Concurrency int
	// Interval is the minimum gap between two requests. Zero disables
	// rate limiting.
	Interval   time.Duration
	Extensions []string
	Logger     *slog.Logger
}

// Client downloads chapter images. It is safe for concurrent use.
type Client struct {
	http        *http.Client
	userAgent   string
	concurrency int
	limiter     *rate.Limiter
	extensions  []string
	fetched     *cache.Cache
	logger      *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		http:        opts.HTTPClient,
		userAgent:   opts.UserAgent,
		concurrency: opts.Concurrency,
		extensions:  opts.Extensions,
		logger:      opts.Logger,
		fetched:     cache.New(defaultCacheExpiration, cacheCleanupInterval),
		limiter:     rate.NewLimiter(rate.Inf, 0),
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.concurrency <= 0 {
		c.concurrency = defaultConcurrency
	}
	if len(c.extensions) == 0 {
		c.extensions = DefaultExtensions
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.Interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}
	return c
}

// ImageURLs returns the absolute URLs of the page images referenced by
// pageURL, in document order and without duplicates. Query strings are
// dropped and only configured extensions are kept.
func (c *Client) ImageURLs(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if i := strings.IndexAny(src, "?#"); i >= 0 {
			src = src[:i]
		}
		if src == "" || !c.wanted(src) {
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			c.logger.Debug("skip image", "src", src, "error", err)
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		urls = append(urls, abs)
	})
	return urls, nil
}

func (c *Client) wanted(src string) bool {
	ext := strings.ToLower(path.Ext(src))
	for _, e := range c.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Download saves every image of pageURL into dir, creating it if needed,
// and returns the written paths in page order. Images already fetched by
// this client are copied from the earlier file.
func (c *Client) Download(ctx context.Context, pageURL, dir string) ([]string, error) {
	urls, err := c.ImageURLs(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	paths := make([]string, len(urls))
	for i, u := range urls {
		name, err := fileName(u)
		if err != nil {
			return nil, err
		}
		paths[i] = filepath.Join(dir, name)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, u := range urls {
		dest := paths[i]
		eg.Go(func() error {
			return c.fetchImage(egCtx, u, dest)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("downloaded chapter", "url", pageURL, "dir", dir, "images", len(paths))
	return paths, nil
}

func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == ".." {
		return "", fmt.Errorf("image url %s has no file name", rawURL)
	}
	return name, nil
}

func (c *Client) fetchImage(ctx context.Context, imageURL, dest string) error {
	if cached, ok := c.fetched.Get(imageURL); ok {
		src := cached.(string)
		if src == dest {
			return nil
		}
		if err := copyFile(src, dest); err == nil {
			c.logger.Debug("reused image", "url", imageURL, "from", src)
			return nil
		}
		c.fetched.Delete(imageURL)
	}

	body, err := c.get(ctx, imageURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := writeAtomic(dest, body); err != nil {
		return fmt.Errorf("save %s: %w", imageURL, err)
	}
	c.fetched.Set(imageURL, dest, cache.DefaultExpiration)
	c.logger.Debug("downloaded image", "url", imageURL, "file", dest)
	return nil
}

// get waits for the rate limiter and issues a GET request. The caller
// closes the returned body.
func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func writeAtomic(dest string, r io.Reader) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, r); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func copyFile(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeAtomic(dest, f)
}
