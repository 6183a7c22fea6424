package receipt

import (
	"bytes"
	"io"
)

// Document is a rendered receipt. The buffer is copied in and out, so
// storage backends can read it without affecting what the caller receives.
type Document struct {
	data []byte
}

// NewDocument wraps a copy of data
func NewDocument(data []byte) Document {
	return Document{data: bytes.Clone(data)}
}

// Bytes returns a copy of the rendered bytes
func (d Document) Bytes() []byte {
	return bytes.Clone(d.data)
}

// Reader returns a new reader positioned at the start of the document
func (d Document) Reader() io.Reader {
	return bytes.NewReader(d.data)
}

// Len returns the document size in bytes
func (d Document) Len() int {
	return len(d.data)
}

// IsEmpty reports whether nothing was rendered
func (d Document) IsEmpty() bool {
	return len(d.data) == 0
}
