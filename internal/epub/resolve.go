package epub

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SortKey orders page files. Keys compare by Major, then Minor, then Name.
type SortKey struct {
	Major int
	Minor int
	Name  string
}

func compareKeys(a, b SortKey) int {
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// OrderFunc maps a filename to its sort key. It must be a pure function of
// its arguments.
type OrderFunc func(name string, dir Direction) SortKey

// LexicalOrder sorts files by name.
func LexicalOrder(name string, _ Direction) SortKey {
	return SortKey{Name: name}
}

// chapterPageRe matches a page number followed by an optional half-page
// marker (0 or 1, optionally preceded by an underscore) before the extension.
var chapterPageRe = regexp.MustCompile(`(\d+)(_?[01])?\.`)

// ChapterPageOrder sorts files by the page number in their name and then by
// the half-page marker left by the landscape splitter. Right-to-left books
// read the right half (marker 1) first. Names without a number sort first.
func ChapterPageOrder(name string, dir Direction) SortKey {
	key := SortKey{Major: -1, Minor: -1, Name: name}
	m := chapterPageRe.FindStringSubmatch(name)
	if m == nil {
		return key
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return key
	}
	key.Major = n
	if m[2] != "" {
		key.Minor, _ = strconv.Atoi(strings.TrimPrefix(m[2], "_"))
	}
	if dir == RightToLeft {
		key.Minor = -key.Minor
	}
	return key
}

// OrderByName returns the ordering strategy registered under name:
// "name" (or empty) for LexicalOrder, "chapter" for ChapterPageOrder.
func OrderByName(name string) (OrderFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "name":
		return LexicalOrder, nil
	case "chapter":
		return ChapterPageOrder, nil
	}
	return nil, fmt.Errorf("unknown page order %q (want name or chapter)", name)
}

// ResolveOptions selects and orders the page images of a book.
type ResolveOptions struct {
	Dir       string
	PageList  []string // explicit ordered filenames relative to Dir; nil lists Dir
	Order     OrderFunc
	Direction Direction
}

// ResolveFiles returns the ordered page filenames. Directory listings drop
// files that are not page images; an explicit page list naming one fails
// with UnsupportedFormatError.
func ResolveFiles(opts ResolveOptions) ([]string, error) {
	var names []string
	if opts.PageList != nil {
		for _, name := range opts.PageList {
			if !IsPageImage(name) {
				return nil, &UnsupportedFormatError{Path: name, Ext: imageExt(name)}
			}
			names = append(names, name)
		}
	} else {
		entries, err := os.ReadDir(opts.Dir)
		if err != nil {
			return nil, &IOError{Op: "list directory", Path: opts.Dir, Err: err}
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !IsPageImage(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		order := opts.Order
		if order == nil {
			order = LexicalOrder
		}
		dir := ParseDirection(string(opts.Direction))
		slices.SortStableFunc(names, func(a, b string) int {
			return compareKeys(order(a, dir), order(b, dir))
		})
	}

	if len(names) < 1 {
		path := opts.Dir
		if opts.PageList != nil {
			path = ""
		}
		return nil, &InputError{Path: path, Reason: "no page images found"}
	}
	if len(names) > MaxPages {
		return nil, &CapacityError{Pages: len(names), Max: MaxPages}
	}
	return names, nil
}

// Resolve returns the ordered pages with their image dimensions.
func Resolve(opts ResolveOptions) ([]Page, error) {
	names, err := ResolveFiles(opts)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, len(names))
	for i, name := range names {
		src := name
		if !filepath.IsAbs(src) {
			src = filepath.Join(opts.Dir, name)
		}
		ext := imageExt(name)
		w, h, err := imageSize(src, ext)
		if err != nil {
			return nil, err
		}
		pages[i] = Page{
			Index:      i,
			Name:       name,
			SourcePath: src,
			Ext:        ext,
			MediaType:  imageTypes[ext],
			Width:      w,
			Height:     h,
		}
	}
	return pages, nil
}

// ResolveTOC pairs alternating label and filename lines into table of
// contents entries. Filenames must match one of files exactly, compared in
// Unicode NFC so decomposed filesystem names still match. A trailing label
// without a filename is ignored.
func ResolveTOC(lines []string, files []string) ([]TOCEntry, error) {
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[norm.NFC.String(f)] = i
	}

	var toc []TOCEntry
	for i := 0; i+1 < len(lines); i += 2 {
		label, file := lines[i], lines[i+1]
		pos, ok := index[norm.NFC.String(file)]
		if !ok {
			return nil, &InputError{Path: file, Reason: fmt.Sprintf("table of contents entry %q is not a page image", label)}
		}
		toc = append(toc, TOCEntry{PageIndex: pos, Label: label})
	}
	return toc, nil
}

// ReadLines returns the trimmed non-blank lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	lines := make([]string, 0)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadListFile reads a page or table of contents list file.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open list", Path: path, Err: err}
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, &IOError{Op: "read list", Path: path, Err: err}
	}
	return lines, nil
}
