package epub

import (
	"archive/zip"
	"bufio"
	"compress/flate"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultCompressionLevel is the deflate level used for archive entries
// unless configured otherwise.
const DefaultCompressionLevel = flate.BestCompression

// PackOptions configures a Packager.
type PackOptions struct {
	// CompressionLevel is the deflate level 0-9 for every entry except
	// mimetype. 0 deflates without compression; -1 selects
	// DefaultCompressionLevel.
	CompressionLevel int
	Logger           *slog.Logger
}

// DefaultPackOptions returns options with maximum compression.
func DefaultPackOptions() PackOptions {
	return PackOptions{CompressionLevel: DefaultCompressionLevel}
}

// Packager assembles a Book into an EPUB archive.
type Packager struct {
	book   *Book
	level  int
	logger *slog.Logger
}

// NewPackager creates a Packager for b.
func NewPackager(b *Book, opts PackOptions) (*Packager, error) {
	if b == nil || len(b.Pages) == 0 {
		return nil, &InputError{Reason: "no page images found"}
	}
	if opts.CompressionLevel == flate.DefaultCompression {
		opts.CompressionLevel = DefaultCompressionLevel
	}
	if opts.CompressionLevel < flate.NoCompression || opts.CompressionLevel > flate.BestCompression {
		return nil, fmt.Errorf("epub: compression level %d out of range 0-9", opts.CompressionLevel)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{book: b, level: opts.CompressionLevel, logger: logger}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the complete archive to w.
func (p *Packager) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	level := p.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	if err := p.writeEntries(zw); err != nil {
		return cw.n, err
	}
	if err := zw.Close(); err != nil {
		return cw.n, &IOError{Op: "finish archive", Err: err}
	}
	return cw.n, nil
}

func (p *Packager) writeEntries(zw *zip.Writer) error {
	b := p.book

	if err := writeMimetype(zw); err != nil {
		return err
	}

	opf, err := PackageDocument(b)
	if err != nil {
		return err
	}
	ncx, err := NCXDocument(b)
	if err != nil {
		return err
	}
	nav, err := NavDocument(b)
	if err != nil {
		return err
	}

	fixed := []struct {
		name string
		data []byte
	}{
		{containerPath, []byte(containerXML)},
		{displayOptionsPath, []byte(displayOptionsXML)},
		{packagePath, opf},
		{ncxPath, ncx},
		{navPath, nav},
		{stylesheetPath, []byte(stylesheet)},
	}
	for _, e := range fixed {
		if err := p.writeEntry(zw, e.name, e.data); err != nil {
			return err
		}
	}

	total := len(b.Pages)
	for i, page := range b.Pages {
		p.logger.Info("processing page",
			"percent", i*100/total,
			"page", i+1,
			"of", total,
			"file", page.Name,
			"size", fmt.Sprintf("%dx%d", page.Width, page.Height),
		)

		doc, err := PageDocument(b, page)
		if err != nil {
			return err
		}
		if err := p.writeEntry(zw, contentDir+page.Href(), doc); err != nil {
			return err
		}
		if err := p.copyImage(zw, page); err != nil {
			return err
		}
	}
	return nil
}

// writeMimetype writes the stored mimetype entry without extra field or
// data descriptor, so its content starts at byte 38 of the archive.
func writeMimetype(zw *zip.Writer) error {
	data := []byte(MediaType)
	fh := &zip.FileHeader{
		Name:               mimetypePath,
		Method:             zip.Store,
		CreatorVersion:     20,
		ReaderVersion:      20,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	w, err := zw.CreateRaw(fh)
	if err != nil {
		return &IOError{Op: "create entry", Path: mimetypePath, Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &IOError{Op: "write entry", Path: mimetypePath, Err: err}
	}
	return nil
}

func (p *Packager) createEntry(zw *zip.Writer, name string) (io.Writer, error) {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: p.book.Modified,
	})
	if err != nil {
		return nil, &IOError{Op: "create entry", Path: name, Err: err}
	}
	return w, nil
}

func (p *Packager) writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := p.createEntry(zw, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &IOError{Op: "write entry", Path: name, Err: err}
	}
	return nil
}

func (p *Packager) copyImage(zw *zip.Writer, page Page) error {
	f, err := os.Open(page.SourcePath)
	if err != nil {
		return &IOError{Op: "open image", Path: page.SourcePath, Err: err}
	}
	defer f.Close()

	name := contentDir + page.ImageHref()
	w, err := p.createEntry(zw, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return &IOError{Op: "copy image", Path: page.SourcePath, Err: err}
	}
	return nil
}

// WriteFile writes the archive to path. The archive is written to a
// temporary file next to path and renamed into place once complete; on
// failure nothing is left at path.
func (p *Packager) WriteFile(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if _, err = p.WriteTo(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return &IOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err = os.Rename(tmpName, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
