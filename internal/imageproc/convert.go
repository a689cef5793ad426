package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrTargetExists is returned when the JPEG file a PNG would be
// converted to already exists.
var ErrTargetExists = errors.New("conversion target already exists")

// ConvertPolicy re-encodes opaque PNGs as JPEG when that makes them
// smaller. Transparent PNGs are kept so their alpha channel survives.
type ConvertPolicy struct {
	opts Options
}

// NewConvertPolicy creates a ConvertPolicy.
func NewConvertPolicy(opts Options) *ConvertPolicy {
	return &ConvertPolicy{opts: opts.withDefaults()}
}

// ConvertFile converts path if the policy applies and returns the path
// of the file to use afterwards along with whether it changed.
func (c *ConvertPolicy) ConvertFile(path string) (string, bool, error) {
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, ".png") {
		return path, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return path, false, err
	}
	cfg, err := decodeConfig(path)
	if err != nil {
		return path, false, err
	}
	if err := checkPixels(path, cfg, c.opts.MaxPixels); err != nil {
		return path, false, err
	}

	img, err := imaging.Open(path)
	if err != nil {
		return path, false, err
	}
	if hasAlpha(img) {
		c.opts.Logger.Debug("keep transparent png", "file", path)
		return path, false, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.opts.JPEGQuality)); err != nil {
		return path, false, fmt.Errorf("jpeg encode failed: %w", err)
	}
	if int64(buf.Len()) >= info.Size() {
		c.opts.Logger.Debug("keep png", "file", path, "png", info.Size(), "jpeg", buf.Len())
		return path, false, nil
	}

	target := strings.TrimSuffix(path, ext) + ".jpg"
	if err := writeNew(target, buf.Bytes()); err != nil {
		return path, false, err
	}
	if err := os.Remove(path); err != nil {
		return path, false, err
	}

	c.opts.Logger.Debug("converted png", "file", path, "png", info.Size(), "jpeg", buf.Len())
	return target, true, nil
}

// ConvertDir applies the policy to every PNG below dir. Files that fail
// are logged and left untouched.
func (c *ConvertPolicy) ConvertDir(dir string) (int, error) {
	count := 0
	err := walkImages(dir, func(path string) error {
		_, changed, err := c.ConvertFile(path)
		if err != nil {
			c.opts.Logger.Warn("convert failed", "file", path, "error", err)
			return nil
		}
		if changed {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	c.opts.Logger.Info("converted png images", "dir", dir, "count", count)
	return count, nil
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", path, ErrTargetExists)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}

func formatSize(cfg image.Config) string {
	return fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
}
