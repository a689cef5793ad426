package epub

import (
	"encoding/xml"
	"fmt"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Xmlns    string      `xml:"xmlns,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Version  string      `xml:"version,attr"`
	Prefix   string      `xml:"prefix,attr"`
	Dir      string      `xml:"dir,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata keeps dc: elements and meta elements interleaved in
// document order, so every child carries its own element name.
type opfMetadata struct {
	XmlnsDC  string       `xml:"xmlns:dc,attr"`
	XmlnsOPF string       `xml:"xmlns:opf,attr"`
	Elements []opfElement `xml:",any"`
}

// opfElement is a dc: element or a meta element (EPUB 2.0 and 3.0)
type opfElement struct {
	XMLName  xml.Name
	ID       string `xml:"id,attr,omitempty"`
	Name     string `xml:"name,attr,omitempty"`     // EPUB 2.0
	Content  string `xml:"content,attr,omitempty"`  // EPUB 2.0
	Property string `xml:"property,attr,omitempty"` // EPUB 3.0
	Refines  string `xml:"refines,attr,omitempty"`
	Scheme   string `xml:"scheme,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc       string       `xml:"toc,attr"`
	Direction string       `xml:"page-progression-direction,attr"`
	ItemRefs  []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef      string `xml:"idref,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

const (
	ncxItemID        = "ncxtoc"
	navItemID        = "toc"
	stylesheetItemID = "imagestyle"
)

func element(name, value string) opfElement {
	return opfElement{XMLName: xml.Name{Local: name}, Value: value}
}

func property(prop, value string) opfElement {
	return opfElement{XMLName: xml.Name{Local: "meta"}, Property: prop, Value: value}
}

// PackageDocument renders OEBPS/content.opf.
func PackageDocument(b *Book) ([]byte, error) {
	cover := b.Cover()

	meta := []opfElement{
		property("dcterms:modified", b.Modified.Format("2006-01-02T15:04:05Z")),
		{XMLName: xml.Name{Local: "dc:identifier"}, ID: "bookId", Value: b.Identifier},
		element("dc:title", b.Title),
		{XMLName: xml.Name{Local: "dc:creator"}, ID: "creator", Value: b.Author},
		{XMLName: xml.Name{Local: "meta"}, Refines: "#creator", Property: "role", Scheme: "marc:relators", Value: "aut"},
		element("dc:language", b.Language),
	}
	for _, s := range b.Subjects {
		meta = append(meta, element("dc:subject", s))
	}
	meta = append(meta,
		opfElement{XMLName: xml.Name{Local: "meta"}, Name: "cover", Content: cover.ImageID()},
		property("rendition:layout", "pre-paginated"),
		property("rendition:orientation", "portrait"),
		property("rendition:spread", "landscape"),
		opfElement{XMLName: xml.Name{Local: "meta"}, Name: "original-resolution", Content: fmt.Sprintf("%dx%d", cover.Width, cover.Height)},
	)

	items := []opfManifestItem{{ID: stylesheetItemID, Href: stylesheetHref, MediaType: "text/css"}}
	for _, p := range b.Pages {
		img := opfManifestItem{ID: p.ImageID(), Href: p.ImageHref(), MediaType: p.MediaType}
		if p.IsCover() {
			img.Properties = "cover-image"
		}
		items = append(items, img, opfManifestItem{
			ID:         p.ID(),
			Href:       p.Href(),
			MediaType:  "application/xhtml+xml",
			Properties: "svg",
		})
	}
	items = append(items,
		opfManifestItem{ID: ncxItemID, Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
		opfManifestItem{ID: navItemID, Href: "toc.xhtml", MediaType: "application/xhtml+xml", Properties: "nav"},
	)

	refs := make([]opfItemRef, len(b.Pages))
	for i, p := range b.Pages {
		refs[i] = opfItemRef{IDRef: p.ID(), Properties: spreadProperty(i, b.Direction)}
	}

	pkg := opfPackage{
		Xmlns:    nsOPF,
		UniqueID: "bookId",
		Version:  "3.0",
		Prefix:   "rendition: http://www.idpf.org/vocab/rendition/#",
		Dir:      string(b.Direction),
		Metadata: opfMetadata{XmlnsDC: nsDC, XmlnsOPF: nsOPF, Elements: meta},
		Manifest: opfManifest{Items: items},
		Spine:    opfSpine{Toc: ncxItemID, Direction: string(b.Direction), ItemRefs: refs},
	}

	data, err := marshalDocument(pkg, "")
	if err != nil {
		return nil, fmt.Errorf("package document: %w", err)
	}
	return data, nil
}

// spreadProperty places even pages on the right and odd pages on the left
// for left-to-right books, and the reverse for right-to-left books.
func spreadProperty(i int, dir Direction) string {
	right := i%2 == 0
	if dir == RightToLeft {
		right = !right
	}
	if right {
		return "page-spread-right"
	}
	return "page-spread-left"
}

