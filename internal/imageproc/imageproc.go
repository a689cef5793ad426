// Package imageproc prepares scraped page images for packaging: it
// splits landscape spreads into single pages and re-encodes opaque PNGs
// as JPEG.
package imageproc

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultJPEGQuality = 90
	defaultMaxPixels   = 100 * 1000 * 1000 // 100 megapixels
)

// Options configures image processing.
type Options struct {
	// JPEGQuality is used for every JPEG written, 1-100.
	JPEGQuality int
	// MaxPixels bounds width*height of images that are decoded in full.
	MaxPixels int
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = defaultJPEGQuality
	}
	if o.JPEGQuality > 100 {
		o.JPEGQuality = 100
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = defaultMaxPixels
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// isRaster reports whether path has a jpeg or png extension.
func isRaster(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func checkPixels(path string, cfg image.Config, limit int) error {
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if limit > 0 && pixels > uint64(limit) {
		return fmt.Errorf("image too large to decode: %s is %dx%d (%d pixels)", path, cfg.Width, cfg.Height, pixels)
	}
	return nil
}

// walkImages calls fn for every jpeg or png file below dir. Directory
// entries are read before fn runs, so files fn creates are not visited.
func walkImages(dir string, fn func(path string) error) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !isRaster(path) {
			return nil
		}
		return fn(path)
	})
}
