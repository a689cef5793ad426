package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	nsXHTML = "http://www.w3.org/1999/xhtml"
	nsOPS   = "http://www.idpf.org/2007/ops"
	nsSVG   = "http://www.w3.org/2000/svg"
	nsXLink = "http://www.w3.org/1999/xlink"
	nsOPF   = "http://www.idpf.org/2007/opf"
	nsDC    = "http://purl.org/dc/elements/1.1/"
	nsNCX   = "http://www.daisy.org/z3986/2005/ncx/"

	htmlDoctype = "<!DOCTYPE html>"
)

// marshalDocument serializes v as an indented XML document with an XML
// declaration and an optional doctype line.
func marshalDocument(v any, doctype string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	if doctype != "" {
		buf.WriteString(doctype + "\n")
	}
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode XML: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
