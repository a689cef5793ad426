package epub

import (
	"encoding/xml"
	"fmt"
)

// ncxDocument is the legacy EPUB 2 navigation control file. It carries a
// single entry for reading systems without nav document support.
type ncxDocument struct {
	XMLName   xml.Name      `xml:"ncx"`
	Xmlns     string        `xml:"xmlns,attr"`
	Version   string        `xml:"version,attr"`
	Head      ncxHead       `xml:"head"`
	DocTitle  ncxText       `xml:"docTitle"`
	DocAuthor ncxText       `xml:"docAuthor"`
	NavPoints []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxHead struct {
	Meta []ncxMeta `xml:"meta"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxNavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     ncxText    `xml:"navLabel"`
	Content   ncxContent `xml:"content"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// NCXDocument renders OEBPS/toc.ncx.
func NCXDocument(b *Book) ([]byte, error) {
	doc := ncxDocument{
		Xmlns:   nsNCX,
		Version: "2005-1",
		Head: ncxHead{Meta: []ncxMeta{
			{Name: "dtb:uid", Content: b.Identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		DocTitle:  ncxText{Text: b.Title},
		DocAuthor: ncxText{Text: b.Author},
		NavPoints: []ncxNavPoint{{
			ID:        "p1",
			PlayOrder: 1,
			Label:     ncxText{Text: b.Title},
			Content:   ncxContent{Src: b.Cover().Href()},
		}},
	}

	data, err := marshalDocument(doc, "")
	if err != nil {
		return nil, fmt.Errorf("ncx document: %w", err)
	}
	return data, nil
}
