package epub

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func packDir(t *testing.T, dir string, meta Metadata) (string, *Book) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "book.epub")
	book, err := Pack(Source{Dir: dir}, meta, out, quietOptions())
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	return out, book
}

func TestPack_MimetypeFirstAndStored(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	out, _ := packDir(t, dir, Metadata{Title: "T"})

	a := openArchive(t, out)
	first := a.files[0]
	if first.Name != "mimetype" {
		t.Fatalf("first entry = %q, want mimetype", first.Name)
	}
	if first.Method != zip.Store {
		t.Fatalf("mimetype method = %d, want Store", first.Method)
	}
	if len(first.Extra) != 0 {
		t.Fatalf("mimetype extra field = %v, want none", first.Extra)
	}
	if got := string(a.read(t, "mimetype")); got != "application/epub+zip" {
		t.Fatalf("mimetype content = %q", got)
	}

	raw := a.raw
	if binary.LittleEndian.Uint16(raw[28:30]) != 0 {
		t.Fatal("mimetype local header has an extra field")
	}
	if string(raw[30:38]) != "mimetype" || string(raw[38:58]) != "application/epub+zip" {
		t.Fatalf("mimetype not at offset 38: %q", raw[30:58])
	}
	if flags := binary.LittleEndian.Uint16(raw[6:8]); flags&0x8 != 0 {
		t.Fatal("mimetype entry uses a data descriptor")
	}
}

func TestPack_EntryOrder(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	writePNG(t, dir, "b.png", 60, 80)
	out, _ := packDir(t, dir, Metadata{})

	want := []string{
		"mimetype",
		"META-INF/container.xml",
		"META-INF/com.apple.ibooks.display-options.xml",
		"OEBPS/content.opf",
		"OEBPS/toc.ncx",
		"OEBPS/toc.xhtml",
		"OEBPS/imagestyle.css",
		"OEBPS/page-000.xhtml",
		"OEBPS/images/page-000.jpg",
		"OEBPS/page-001.xhtml",
		"OEBPS/images/page-001.png",
	}
	a := openArchive(t, out)
	if got := a.names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v\nwant %v", got, want)
	}
	for _, f := range a.files[1:] {
		if f.Method != zip.Deflate {
			t.Fatalf("%s method = %d, want Deflate", f.Name, f.Method)
		}
	}
}

func TestPack_TwoPageExample(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 800, 600)
	pngPath := writePNG(t, dir, "b.png", 600, 800)
	out, _ := packDir(t, dir, Metadata{Title: "Example"})
	a := openArchive(t, out)

	first := parsePage(t, a.read(t, "OEBPS/page-000.xhtml"))
	if first.Body.SVG.Image.Href != "images/page-000.jpg" || first.Viewport.Content != "width=800, height=600" || first.Body.Type != "cover" {
		t.Fatalf("page-000 = %+v", first)
	}
	second := parsePage(t, a.read(t, "OEBPS/page-001.xhtml"))
	if second.Body.SVG.Image.Href != "images/page-001.png" || second.Viewport.Content != "width=600, height=800" || second.Body.Type != "bodymatter" {
		t.Fatalf("page-001 = %+v", second)
	}

	pkg := parsePackage(t, a.read(t, "OEBPS/content.opf"))
	if len(pkg.Spine.ItemRefs) != 2 || pkg.Spine.ItemRefs[0].IDRef != "page-000" || pkg.Spine.ItemRefs[1].IDRef != "page-001" {
		t.Fatalf("spine = %+v", pkg.Spine.ItemRefs)
	}

	src, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(a.read(t, "OEBPS/images/page-001.png"), src) {
		t.Fatal("image entry differs from the source file")
	}

	container := string(a.read(t, "META-INF/container.xml"))
	if !strings.Contains(container, `full-path="OEBPS/content.opf"`) {
		t.Fatalf("container.xml = %s", container)
	}
	css := string(a.read(t, "OEBPS/imagestyle.css"))
	if !strings.Contains(css, "#image") || !strings.Contains(css, "margin: 0;") {
		t.Fatalf("stylesheet = %s", css)
	}
}

func TestPack_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	writePNG(t, dir, "b.png", 60, 80)
	meta := Metadata{Title: "T", Identifier: "urn:uuid:fixed", Modified: pinnedTime}

	first, _ := packDir(t, dir, meta)
	second, _ := packDir(t, dir, meta)

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("archives with pinned identifier and time should be identical")
	}
}

func TestPack_OnlyTimestampDiffers(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	meta := Metadata{Title: "T", Identifier: "urn:uuid:fixed", Modified: pinnedTime}
	first, _ := packDir(t, dir, meta)
	meta.Modified = pinnedTime.Add(48 * time.Hour)
	second, _ := packDir(t, dir, meta)

	a, b := openArchive(t, first), openArchive(t, second)
	if !reflect.DeepEqual(a.names(), b.names()) {
		t.Fatal("entry lists differ")
	}
	for _, name := range a.names() {
		x, y := a.read(t, name), b.read(t, name)
		if name == "OEBPS/content.opf" {
			x = bytes.Replace(x, []byte("2024-03-01T12:30:00Z"), []byte("T"), 1)
			y = bytes.Replace(y, []byte("2024-03-03T12:30:00Z"), []byte("T"), 1)
		}
		if !bytes.Equal(x, y) {
			t.Fatalf("entry %s differs beyond the modified timestamp", name)
		}
	}
}

func TestPack_TooManyPagesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 1000; i++ {
		writeSVG(t, dir, fmt.Sprintf("%04d.svg", i))
	}
	outDir := t.TempDir()
	out := filepath.Join(outDir, "book.epub")

	_, err := Pack(Source{Dir: dir}, Metadata{}, out, quietOptions())
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	assertEmptyDir(t, outDir)
}

func TestPack_MaxPages(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < MaxPages; i++ {
		writeSVG(t, dir, fmt.Sprintf("%04d.svg", i))
	}
	out, book := packDir(t, dir, Metadata{})
	if len(book.Pages) != MaxPages {
		t.Fatalf("pages = %d", len(book.Pages))
	}
	a := openArchive(t, out)
	if _, ok := a.byName["OEBPS/page-998.xhtml"]; !ok {
		t.Fatal("last page document missing")
	}
}

func TestPack_TOCMissingFileWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	outDir := t.TempDir()
	out := filepath.Join(outDir, "book.epub")

	_, err := Pack(Source{Dir: dir, TOCList: []string{"Intro", "b.jpg"}}, Metadata{}, out, quietOptions())
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
	assertEmptyDir(t, outDir)
}

func TestPack_TOCList(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	writeJPEG(t, dir, "b.jpg", 80, 60)
	writeJPEG(t, dir, "c.jpg", 80, 60)
	out := filepath.Join(t.TempDir(), "book.epub")

	book, err := Pack(Source{Dir: dir, TOCList: []string{"Start", "a.jpg", "Middle", "c.jpg"}}, Metadata{}, out, quietOptions())
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	want := []TOCEntry{{PageIndex: 0, Label: "Start"}, {PageIndex: 2, Label: "Middle"}}
	if !reflect.DeepEqual(book.TOC, want) {
		t.Fatalf("TOC = %+v", book.TOC)
	}
}

func TestPack_PageList(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	writePNG(t, dir, "b.png", 60, 80)
	out := filepath.Join(t.TempDir(), "book.epub")

	book, err := Pack(Source{Dir: dir, PageList: []string{"b.png", "a.jpg"}}, Metadata{}, out, quietOptions())
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if book.Cover().Name != "b.png" {
		t.Fatalf("cover = %q, want b.png", book.Cover().Name)
	}
	a := openArchive(t, out)
	if _, ok := a.byName["OEBPS/images/page-000.png"]; !ok {
		t.Fatalf("entries = %v", a.names())
	}
}

func TestWriteFile_SourceRemovedLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	second := writeJPEG(t, dir, "b.jpg", 80, 60)

	book, err := Build(Source{Dir: dir}, Metadata{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := os.Remove(second); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	p, err := NewPackager(book, quietOptions())
	if err != nil {
		t.Fatalf("NewPackager() error = %v", err)
	}
	outDir := t.TempDir()
	err = p.WriteFile(filepath.Join(outDir, "book.epub"))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if ioErr.Path != second {
		t.Fatalf("IOError.Path = %q, want %q", ioErr.Path, second)
	}
	assertEmptyDir(t, outDir)
}

func TestWriteFile_MissingOutputDirectory(t *testing.T) {
	book := testBook(t, 1, Metadata{})
	p, err := NewPackager(book, quietOptions())
	if err != nil {
		t.Fatalf("NewPackager() error = %v", err)
	}
	err = p.WriteFile(filepath.Join(t.TempDir(), "missing", "book.epub"))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestWriteFile_ReplacesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 80, 60)
	out := filepath.Join(t.TempDir(), "book.epub")
	writeFile(t, filepath.Dir(out), "book.epub", []byte("stale"))

	if _, err := Pack(Source{Dir: dir}, Metadata{}, out, quietOptions()); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if a := openArchive(t, out); a.files[0].Name != "mimetype" {
		t.Fatal("existing output was not replaced")
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestNewPackager_CompressionLevel(t *testing.T) {
	book := testBook(t, 1, Metadata{})
	for _, level := range []int{-2, 10} {
		if _, err := NewPackager(book, PackOptions{CompressionLevel: level}); err == nil {
			t.Fatalf("level %d: expected error", level)
		}
	}
	p, err := NewPackager(book, PackOptions{CompressionLevel: -1})
	if err != nil {
		t.Fatalf("NewPackager(-1) error = %v", err)
	}
	if p.level != DefaultCompressionLevel {
		t.Fatalf("level = %d, want %d", p.level, DefaultCompressionLevel)
	}
	if _, err := NewPackager(nil, DefaultPackOptions()); err == nil {
		t.Fatal("nil book: expected error")
	}
}

func TestWriteTo_CompressionLevels(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, dir, "a.jpg", 200, 200)
	book, err := Build(Source{Dir: dir}, Metadata{Modified: pinnedTime, Identifier: "urn:x"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	sizes := make(map[int]int64)
	for _, level := range []int{0, 9} {
		opts := quietOptions()
		opts.CompressionLevel = level
		p, err := NewPackager(book, opts)
		if err != nil {
			t.Fatalf("NewPackager() error = %v", err)
		}
		var buf bytes.Buffer
		n, err := p.WriteTo(&buf)
		if err != nil {
			t.Fatalf("WriteTo() error = %v", err)
		}
		if n != int64(buf.Len()) {
			t.Fatalf("WriteTo() = %d, wrote %d bytes", n, buf.Len())
		}
		openArchiveBytes(t, buf.Bytes())
		sizes[level] = n
	}
	if sizes[9] >= sizes[0] {
		t.Fatalf("level 9 (%d bytes) should be smaller than level 0 (%d bytes)", sizes[9], sizes[0])
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected no output, found %v", names)
	}
}
