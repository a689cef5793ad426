package epub

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// imageTypes maps accepted page image extensions to their media types.
var imageTypes = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
}

// imageExt returns the lower-cased extension of name without the dot.
func imageExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsPageImage reports whether name has an accepted page image extension.
func IsPageImage(name string) bool {
	_, ok := imageTypes[imageExt(name)]
	return ok
}

// imageSize reads the pixel dimensions of a raster image. SVG images have
// no raster size and report UnknownSize for both.
func imageSize(path, ext string) (int, int, error) {
	if ext == "svg" {
		return UnknownSize, UnknownSize, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, &IOError{Op: "read image", Path: path, Err: err}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, &IOError{Op: "decode image", Path: path, Err: fmt.Errorf("read dimensions: %w", err)}
	}
	return cfg.Width, cfg.Height, nil
}
