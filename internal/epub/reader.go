package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrMimetypeNotFirst   = errors.New("mimetype must be the first archive entry")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeLayout     = errors.New("mimetype entry must have no extra field or data descriptor")
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrContainerNotFound  = errors.New("META-INF/container.xml not found")
	ErrPackageNotFound    = errors.New("package document path not found in container.xml")
	ErrInvalidBook        = errors.New("invalid book")
)

// Reader provides access to the entries of a packaged book.
type Reader struct {
	zr          *zip.ReadCloser
	files       map[string]*zip.File
	packagePath string
}

type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// Open opens a packaged book and validates its container layout.
func Open(name string) (*Reader, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, &IOError{Op: "open archive", Path: name, Err: err}
	}

	r := &Reader{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[strings.TrimPrefix(f.Name, "./")] = f
	}

	if err := r.validateMimetype(); err != nil {
		zr.Close()
		return nil, err
	}
	if err := r.parseContainer(); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying archive.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// PackagePath returns the archive path of the package document.
func (r *Reader) PackagePath() string {
	return r.packagePath
}

// Names returns the entry names in archive order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.zr.File))
	for i, f := range r.zr.File {
		names[i] = f.Name
	}
	return names
}

// ReadFile returns the contents of an entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "./")
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *Reader) has(name string) bool {
	_, ok := r.files[name]
	return ok
}

func (r *Reader) validateMimetype() error {
	f, ok := r.files[mimetypePath]
	if !ok {
		return ErrMimetypeNotFound
	}
	if r.zr.File[0] != f {
		return ErrMimetypeNotFirst
	}
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}
	if len(f.Extra) != 0 || f.Flags&0x8 != 0 {
		return ErrMimetypeLayout
	}

	content, err := r.ReadFile(mimetypePath)
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if string(content) != MediaType {
		return ErrInvalidMimetype
	}
	return nil
}

func (r *Reader) parseContainer() error {
	content, err := r.ReadFile(containerPath)
	if err != nil {
		return ErrContainerNotFound
	}

	var c container
	if err := xml.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
			r.packagePath = rf.FullPath
			return nil
		}
	}
	if len(c.Rootfiles.Rootfile) > 0 {
		r.packagePath = c.Rootfiles.Rootfile[0].FullPath
		return nil
	}
	return ErrPackageNotFound
}

// Summary describes a verified book.
type Summary struct {
	Identifier string
	Title      string
	Author     string
	Language   string
	Direction  Direction
	Modified   string
	Pages      int
	CoverHref  string // cover image path relative to the package document
}

// Verify opens a packaged book and checks that its package document,
// spine, cover and page documents are consistent with the archive.
func Verify(name string) (*Summary, error) {
	r, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := r.ReadFile(r.packagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBook, err)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse package document: %v", ErrInvalidBook, err)
	}

	base := path.Dir(r.packagePath)
	manifest := make(map[string]opfManifestItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		if !r.has(resolvePath(base, item.Href)) {
			return nil, fmt.Errorf("%w: manifest item %q points at missing %s", ErrInvalidBook, item.ID, item.Href)
		}
		manifest[item.ID] = item
	}

	s := &Summary{Direction: ParseDirection(pkg.Spine.Direction)}
	readMetadata(pkg.Metadata.Elements, s)

	cover, ok := detectCover(pkg, manifest)
	if !ok {
		return nil, fmt.Errorf("%w: no cover image", ErrInvalidBook)
	}
	s.CoverHref = cover.Href

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := manifest[ref.IDRef]
		if !ok {
			return nil, fmt.Errorf("%w: spine item %q not in manifest", ErrInvalidBook, ref.IDRef)
		}
		docPath := resolvePath(base, item.Href)
		doc, err := r.ReadFile(docPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBook, err)
		}
		img, err := pageImage(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBook, docPath, err)
		}
		if !r.has(resolvePath(path.Dir(docPath), img)) {
			return nil, fmt.Errorf("%w: %s references missing image %s", ErrInvalidBook, docPath, img)
		}
		s.Pages++
	}
	if s.Pages == 0 {
		return nil, fmt.Errorf("%w: empty spine", ErrInvalidBook)
	}
	return s, nil
}

func readMetadata(elems []opfElement, s *Summary) {
	for _, e := range elems {
		switch {
		case e.XMLName.Local == "identifier":
			s.Identifier = e.Value
		case e.XMLName.Local == "title":
			s.Title = e.Value
		case e.XMLName.Local == "creator":
			s.Author = e.Value
		case e.XMLName.Local == "language":
			s.Language = e.Value
		case e.XMLName.Local == "meta" && e.Property == "dcterms:modified":
			s.Modified = e.Value
		}
	}
}

// detectCover finds the cover image by the cover-image manifest property,
// falling back to the EPUB 2 meta name="cover".
func detectCover(pkg opfPackage, manifest map[string]opfManifestItem) (opfManifestItem, bool) {
	for _, item := range pkg.Manifest.Items {
		if slices.Contains(strings.Fields(item.Properties), "cover-image") {
			return item, true
		}
	}
	for _, e := range pkg.Metadata.Elements {
		if e.XMLName.Local == "meta" && e.Name == "cover" {
			item, ok := manifest[e.Content]
			return item, ok
		}
	}
	return opfManifestItem{}, false
}

// pageImage returns the image referenced by a page document, either
// through an SVG image element or a plain img element.
func pageImage(doc []byte) (string, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("failed to parse XHTML: %w", err)
	}
	if href, ok := d.Find("svg image").First().Attr("href"); ok && href != "" {
		return href, nil
	}
	if src, ok := d.Find("img").First().Attr("src"); ok && src != "" {
		return src, nil
	}
	return "", errors.New("no page image")
}

// resolvePath resolves a relative reference against an archive directory.
func resolvePath(baseDir, rel string) string {
	return path.Clean(path.Join(baseDir, rel))
}
