package epub

import "fmt"

// InputError reports an unusable input set: no images, or a table of
// contents entry that does not match a resolved page.
type InputError struct {
	Path   string
	Reason string
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return "epub: " + e.Reason
	}
	return fmt.Sprintf("epub: %s: %s", e.Path, e.Reason)
}

// CapacityError reports a book with more pages than the three-digit
// identifier scheme can address.
type CapacityError struct {
	Pages int
	Max   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("epub: %d pages exceed the maximum of %d", e.Pages, e.Max)
}

// UnsupportedFormatError reports an explicitly listed file whose extension
// is not a page image type.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("epub: %s: unsupported image format %q", e.Path, e.Ext)
}

// IOError wraps a filesystem or archive failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("epub: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("epub: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
