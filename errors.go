package supernote

import "fmt"

// A FormatError reports a file that is not a usable .note container:
// bad signature, truncated footer, or a root directory that cannot be
// walked. The whole file is rejected.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "not a note file: " + e.Reason
}

// An IndexError reports a directory entry whose address does not
// resolve within file bounds. It is fatal for the referencing entity;
// a damaged page directory is skipped while the rest of the file stays
// readable.
type IndexError struct {
	Key    string
	Offset int64
	Size   int64
	End    int64
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("object %q: range [%d, %d) outside file of %d bytes", e.Key, e.Offset, e.Offset+e.Size, e.End)
}

// A DecodeError reports a compressed layer payload inconsistent with
// its declared dimensions. It is fatal for that one layer; sibling
// layers and pages are unaffected.
type DecodeError struct {
	Layer string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("layer %s: %v", e.Layer, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
