package epub

import (
	"encoding/xml"
	"fmt"
)

// xhtmlPage is a fixed-layout page wrapper: one full-viewport SVG element
// embedding the page image.
type xhtmlPage struct {
	XMLName   xml.Name      `xml:"html"`
	Xmlns     string        `xml:"xmlns,attr"`
	XmlnsEPUB string        `xml:"xmlns:epub,attr"`
	Lang      string        `xml:"lang,attr"`
	Head      xhtmlHead     `xml:"head"`
	Body      xhtmlPageBody `xml:"body"`
}

type xhtmlHead struct {
	Viewport *xhtmlMeta `xml:"meta,omitempty"`
	Title    string     `xml:"title"`
	Link     *xhtmlLink `xml:"link,omitempty"`
}

type xhtmlMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type xhtmlLink struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

type xhtmlPageBody struct {
	EPUBType string   `xml:"epub:type,attr"`
	SVG      svgFrame `xml:"svg"`
}

type svgFrame struct {
	Xmlns      string   `xml:"xmlns,attr"`
	XmlnsXLink string   `xml:"xmlns:xlink,attr"`
	ID         string   `xml:"id,attr"`
	Version    string   `xml:"version,attr"`
	ViewBox    string   `xml:"viewBox,attr"`
	Image      svgImage `xml:"image"`
}

type svgImage struct {
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Href   string `xml:"xlink:href,attr"`
}

// PageDocument renders the XHTML wrapper of a page.
func PageDocument(b *Book, p Page) ([]byte, error) {
	doc := xhtmlPage{
		Xmlns:     nsXHTML,
		XmlnsEPUB: nsOPS,
		Lang:      b.Language,
		Head: xhtmlHead{
			Viewport: &xhtmlMeta{
				Name:    "viewport",
				Content: fmt.Sprintf("width=%d, height=%d", p.Width, p.Height),
			},
			Title: p.Title(),
			Link:  &xhtmlLink{Rel: "stylesheet", Type: "text/css", Href: stylesheetHref},
		},
		Body: xhtmlPageBody{
			EPUBType: p.EPUBType(),
			SVG: svgFrame{
				Xmlns:      nsSVG,
				XmlnsXLink: nsXLink,
				ID:         "image",
				Version:    "1.1",
				ViewBox:    fmt.Sprintf("0 0 %d %d", p.Width, p.Height),
				Image: svgImage{
					Width:  p.Width,
					Height: p.Height,
					Href:   p.ImageHref(),
				},
			},
		},
	}

	data, err := marshalDocument(doc, htmlDoctype)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", p.ID(), err)
	}
	return data, nil
}
