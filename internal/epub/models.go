package epub

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxPages is the largest page count addressable by three-digit page identifiers.
const MaxPages = 999

// UnknownSize is recorded as width and height for images without a raster size (SVG).
const UnknownSize = -1

// Direction is the page progression direction of a book.
type Direction string

const (
	LeftToRight Direction = "ltr"
	RightToLeft Direction = "rtl"
)

// ParseDirection normalizes a direction string. Anything other than "rtl"
// reads left to right.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(RightToLeft)) {
		return RightToLeft
	}
	return LeftToRight
}

// Page is one image of the book in reading order.
type Page struct {
	Index      int    // zero-based reading position
	Name       string // filename as listed in the source directory or page list
	SourcePath string // path the image is read from
	Ext        string // lower-cased extension without the dot
	MediaType  string
	Width      int
	Height     int
}

// IsCover reports whether the page is the cover (always the first page).
func (p Page) IsCover() bool {
	return p.Index == 0
}

func (p Page) uid() string {
	return fmt.Sprintf("%03d", p.Index)
}

// ID returns the manifest id of the page document, e.g. "page-007".
func (p Page) ID() string {
	return "page-" + p.uid()
}

// ImageID returns the manifest id of the page image, e.g. "img-007".
func (p Page) ImageID() string {
	return "img-" + p.uid()
}

// Href returns the page document path relative to OEBPS/.
func (p Page) Href() string {
	return p.ID() + ".xhtml"
}

// ImageHref returns the image path relative to OEBPS/.
func (p Page) ImageHref() string {
	return "images/page-" + p.uid() + "." + p.Ext
}

// Title is the document title of the page wrapper.
func (p Page) Title() string {
	if p.IsCover() {
		return "Cover"
	}
	return fmt.Sprintf("Page %d", p.Index)
}

// EPUBType is the structural semantics of the page wrapper body.
func (p Page) EPUBType() string {
	if p.IsCover() {
		return "cover"
	}
	return "bodymatter"
}

// TOCEntry is one chapter entry of the navigation document.
type TOCEntry struct {
	PageIndex int
	Label     string
}

// Metadata holds the publication-level metadata of a book.
type Metadata struct {
	Title      string
	Author     string
	Identifier string // URN; a random urn:uuid is generated when empty
	Language   string
	Direction  Direction
	Subjects   []string
	Modified   time.Time // dcterms:modified and archive entry time; now when zero
}

// Book is an ordered, validated set of pages ready to be packaged.
type Book struct {
	Metadata
	Pages []Page
	TOC   []TOCEntry
}

// NewBook validates pages and fills metadata defaults. pages must carry
// consecutive indexes starting at zero. A nil toc yields a single entry
// pointing at the cover and labelled with the title.
func NewBook(meta Metadata, pages []Page, toc []TOCEntry) (*Book, error) {
	if len(pages) < 1 {
		return nil, &InputError{Reason: "no page images found"}
	}
	if len(pages) > MaxPages {
		return nil, &CapacityError{Pages: len(pages), Max: MaxPages}
	}
	for i, p := range pages {
		if p.Index != i {
			return nil, &InputError{Path: p.Name, Reason: fmt.Sprintf("page index %d out of order, want %d", p.Index, i)}
		}
	}

	if meta.Identifier == "" {
		meta.Identifier = "urn:uuid:" + uuid.NewString()
	}
	if meta.Language == "" {
		meta.Language = "en"
	}
	meta.Direction = ParseDirection(string(meta.Direction))
	if meta.Modified.IsZero() {
		meta.Modified = time.Now()
	}
	meta.Modified = meta.Modified.UTC().Truncate(time.Second)

	if len(toc) == 0 {
		toc = []TOCEntry{{PageIndex: 0, Label: meta.Title}}
	}
	for _, e := range toc {
		if e.PageIndex < 0 || e.PageIndex >= len(pages) {
			return nil, &InputError{Reason: fmt.Sprintf("table of contents entry %q points at page %d of %d", e.Label, e.PageIndex, len(pages))}
		}
	}

	return &Book{
		Metadata: meta,
		Pages:    append([]Page(nil), pages...),
		TOC:      append([]TOCEntry(nil), toc...),
	}, nil
}

// Cover returns the first page.
func (b *Book) Cover() Page {
	return b.Pages[0]
}
