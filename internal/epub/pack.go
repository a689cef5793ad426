package epub

// Source describes where the pages and table of contents of a book come from.
type Source struct {
	Dir      string
	PageList []string  // explicit ordered filenames; nil lists Dir
	TOCList  []string  // alternating label and filename lines; nil for the default entry
	Order    OrderFunc // ordering of directory listings; nil sorts by name
}

// Build resolves src into a validated Book.
func Build(src Source, meta Metadata) (*Book, error) {
	pages, err := Resolve(ResolveOptions{
		Dir:       src.Dir,
		PageList:  src.PageList,
		Order:     src.Order,
		Direction: meta.Direction,
	})
	if err != nil {
		return nil, err
	}

	var toc []TOCEntry
	if src.TOCList != nil {
		names := make([]string, len(pages))
		for i, p := range pages {
			names[i] = p.Name
		}
		toc, err = ResolveTOC(src.TOCList, names)
		if err != nil {
			return nil, err
		}
	}

	return NewBook(meta, pages, toc)
}

// Pack builds the book described by src and writes it to output.
func Pack(src Source, meta Metadata, output string, opts PackOptions) (*Book, error) {
	book, err := Build(src, meta)
	if err != nil {
		return nil, err
	}
	p, err := NewPackager(book, opts)
	if err != nil {
		return nil, err
	}
	if err := p.WriteFile(output); err != nil {
		return nil, err
	}
	return book, nil
}
