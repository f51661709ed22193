// Package archive bundles per-product output files into one downloadable
// zip. The archive is owned by the orchestrator and only ever handed out
// whole.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// Builder collects named byte buffers and closes into a single zip.
type Builder struct {
	buf *bytes.Buffer
	w   *zip.Writer
}

func NewBuilder() *Builder {
	buf := &bytes.Buffer{}
	return &Builder{buf: buf, w: zip.NewWriter(buf)}
}

// Add appends one file. Entries carry a fixed timestamp so identical inputs
// produce identical archives.
func (b *Builder) Add(name string, data []byte) error {
	f, err := b.w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return fmt.Errorf("add %s to archive: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("add %s to archive: %w", name, err)
	}
	return nil
}

// Close finalizes the archive and returns its bytes.
func (b *Builder) Close() ([]byte, error) {
	if err := b.w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return b.buf.Bytes(), nil
}
