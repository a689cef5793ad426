package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// navDocument is the EPUB 3 navigation document with a chapter table of
// contents and a page list.
type navDocument struct {
	XMLName   xml.Name   `xml:"html"`
	Xmlns     string     `xml:"xmlns,attr"`
	XmlnsEPUB string     `xml:"xmlns:epub,attr"`
	Lang      string     `xml:"lang,attr"`
	Head      navHead    `xml:"head"`
	Section   navSection `xml:"body>section"`
}

type navHead struct {
	Title string `xml:"title"`
}

type navSection struct {
	Class    string    `xml:"class,attr"`
	EPUBType string    `xml:"epub:type,attr"`
	Heading  string    `xml:"h1"`
	Navs     []navList `xml:"nav"`
}

type navList struct {
	EPUBType string    `xml:"epub:type,attr"`
	ID       string    `xml:"id,attr,omitempty"`
	Items    []navItem `xml:"ol>li"`
}

type navItem struct {
	EPUBType string  `xml:"epub:type,attr,omitempty"`
	Link     navLink `xml:"a"`
}

type navLink struct {
	Href  string `xml:"href,attr"`
	Label string `xml:",chardata"`
}

// NavDocument renders OEBPS/toc.xhtml. The page list names every page
// except the cover and is omitted for single-page books.
func NavDocument(b *Book) ([]byte, error) {
	toc := navList{EPUBType: "toc", ID: "toc"}
	for _, e := range b.TOC {
		toc.Items = append(toc.Items, navItem{
			EPUBType: "chapter",
			Link:     navLink{Href: b.Pages[e.PageIndex].Href(), Label: e.Label},
		})
	}
	navs := []navList{toc}

	if len(b.Pages) > 1 {
		pageList := navList{EPUBType: "page-list"}
		for _, p := range b.Pages[1:] {
			pageList.Items = append(pageList.Items, navItem{
				Link: navLink{Href: p.Href(), Label: strconv.Itoa(p.Index)},
			})
		}
		navs = append(navs, pageList)
	}

	doc := navDocument{
		Xmlns:     nsXHTML,
		XmlnsEPUB: nsOPS,
		Lang:      b.Language,
		Head:      navHead{Title: b.Title},
		Section: navSection{
			Class:    "frontmatter",
			EPUBType: "frontmatter toc",
			Heading:  "Table of Contents",
			Navs:     navs,
		},
	}

	data, err := marshalDocument(doc, htmlDoctype)
	if err != nil {
		return nil, fmt.Errorf("nav document: %w", err)
	}
	return data, nil
}
