package mcg

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

// backing pairs an io.ReaderAt with its known total size so range reads can
// be validated before touching the underlying file or buffer.
//
// File archives use an mmap.ReaderAt; nested archives parsed out of a
// decompressed packet use a bytes.Reader over the packet body. Because both
// are stateless ReaderAt implementations, a failed read cannot poison later
// reads and no seek/read ordering applies.
type backing struct {
	ra     io.ReaderAt
	size   int64
	closer io.Closer // nil for in-memory backings
}

// openBacking memory-maps the file at path.
func openBacking(path string) (*backing, error) {
	mr, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &backing{ra: mr, size: int64(mr.Len()), closer: mr}, nil
}

// bytesBacking wraps an in-memory buffer.
func bytesBacking(b []byte) *backing {
	return &backing{ra: bytes.NewReader(b), size: int64(len(b))}
}

// readRange returns exactly n bytes starting at off.
//
// A request that starts or ends outside the backing fails with
// ErrReadOutOfRange before any I/O happens; a short read from the
// underlying ReaderAt is surfaced as an error, never as a partially
// filled success.
func (b *backing) readRange(off int64, n uint32) ([]byte, error) {
	if b == nil || b.ra == nil {
		return nil, ErrArchiveClosed
	}
	if n == 0 {
		return nil, nil
	}
	if off < 0 || off+int64(n) > b.size {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrReadOutOfRange, off, off+int64(n), b.size)
	}
	buf := make([]byte, n)
	got, err := b.ra.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, off, err)
	}
	if got != int(n) {
		return nil, fmt.Errorf("%w: short read, got %d of %d bytes at %d", ErrReadOutOfRange, got, n, off)
	}
	return buf, nil
}

func (b *backing) close() error {
	if b == nil {
		return nil
	}
	b.ra = nil
	if b.closer != nil {
		c := b.closer
		b.closer = nil
		return c.Close()
	}
	return nil
}
