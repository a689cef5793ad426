package imageproc

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Splitter cuts landscape images into a left and a right page.
type Splitter struct {
	opts Options
}

// NewSplitter creates a Splitter.
func NewSplitter(opts Options) *Splitter {
	return &Splitter{opts: opts.withDefaults()}
}

// SplitNames returns the file names used for the left and right halves
// of path: name_0.ext and name_1.ext.
func SplitNames(path string) (left, right string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_0" + ext, base + "_1" + ext
}

// SplitFile splits path in place when it is wider than tall. The
// original is removed once both halves are written. It reports whether
// the file was split.
func (s *Splitter) SplitFile(path string) (bool, error) {
	cfg, err := decodeConfig(path)
	if err != nil {
		return false, err
	}
	if cfg.Width <= cfg.Height {
		return false, nil
	}
	if err := checkPixels(path, cfg, s.opts.MaxPixels); err != nil {
		return false, err
	}

	img, err := imaging.Open(path)
	if err != nil {
		return false, err
	}
	b := img.Bounds()
	mid := b.Min.X + b.Dx()/2
	leftImg := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, mid, b.Max.Y))
	rightImg := imaging.Crop(img, image.Rect(mid, b.Min.Y, b.Max.X, b.Max.Y))

	left, right := SplitNames(path)
	quality := imaging.JPEGQuality(s.opts.JPEGQuality)
	if err := imaging.Save(leftImg, left, quality); err != nil {
		return false, err
	}
	if err := imaging.Save(rightImg, right, quality); err != nil {
		os.Remove(left)
		return false, err
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}

	s.opts.Logger.Debug("split image",
		"file", path,
		"size", formatSize(cfg),
		"left", filepath.Base(left),
		"right", filepath.Base(right),
	)
	return true, nil
}

// SplitDir splits every landscape image below dir. Files that fail are
// logged and left untouched; only a failure to walk dir is returned.
func (s *Splitter) SplitDir(dir string) (int, error) {
	count := 0
	err := walkImages(dir, func(path string) error {
		split, err := s.SplitFile(path)
		if err != nil {
			s.opts.Logger.Warn("split failed", "file", path, "error", err)
			return nil
		}
		if split {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	s.opts.Logger.Info("split landscape images", "dir", dir, "count", count)
	return count, nil
}
