package epub

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var pinnedTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func quietOptions() PackOptions {
	opts := DefaultPackOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, makeSolidNRGBA(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255}), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, makeSolidNRGBA(w, h, color.NRGBA{R: 40, G: 40, B: 200, A: 255})); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

func writeSVG(t *testing.T, dir, name string) string {
	t.Helper()
	return writeFile(t, dir, name, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"/>`))
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// archive is an opened EPUB under test with entries in archive order.
type archive struct {
	raw    []byte
	files  []*zip.File
	byName map[string]*zip.File
}

func openArchive(t *testing.T, path string) *archive {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read archive: %v", err)
	}
	return openArchiveBytes(t, raw)
}

func openArchiveBytes(t *testing.T, raw []byte) *archive {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	a := &archive{raw: raw, files: zr.File, byName: make(map[string]*zip.File)}
	for _, f := range zr.File {
		a.byName[f.Name] = f
	}
	return a
}

func (a *archive) names() []string {
	names := make([]string, len(a.files))
	for i, f := range a.files {
		names[i] = f.Name
	}
	return names
}

func (a *archive) read(t *testing.T, name string) []byte {
	t.Helper()
	f, ok := a.byName[name]
	if !ok {
		t.Fatalf("entry %s not found in %v", name, a.names())
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("failed to open %s: %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return data
}

// testBook builds a book from n generated pages without touching the disk.
func testBook(t *testing.T, n int, meta Metadata) *Book {
	t.Helper()
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{
			Index:     i,
			Name:      "p.jpg",
			Ext:       "jpg",
			MediaType: "image/jpeg",
			Width:     800,
			Height:    1200,
		}
	}
	b, err := NewBook(meta, pages, nil)
	if err != nil {
		t.Fatalf("NewBook() error = %v", err)
	}
	return b
}
