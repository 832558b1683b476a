package mcg

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// zrPool reuses zlib.Reader instances to reduce allocations across packet
// reads. We create a fresh one on demand the first time New() is hit,
// because there is no exported zero-value constructor for zlib.Reader.
var zrPool = sync.Pool{New: func() any { return nil }}

// getZlibReader obtains a zlib reader from the pool or creates a new one,
// reset to read from src.
func getZlibReader(src io.Reader) (io.ReadCloser, error) {
	if v := zrPool.Get(); v != nil {
		if zr, ok := v.(interface {
			Reset(io.Reader, []byte) error
		}); ok {
			if err := zr.Reset(src, nil); err == nil {
				return zr.(io.ReadCloser), nil
			}
		}
		// Could not reset (bad stream header) - fall through to fresh alloc.
	}
	return zlib.NewReader(src)
}

// putZlibReader returns a zlib reader to the pool for reuse.
func putZlibReader(r io.ReadCloser) {
	_ = r.Close()
	zrPool.Put(r)
}

// inflate expands a zlib stream into dst and returns the number of bytes
// produced, following the same contract as LZDecompress: output is capped
// at len(dst), 0 means the stream was unreadable, and no error escapes.
func inflate(src, dst []byte) int {
	if len(src) == 0 || len(dst) == 0 {
		return 0
	}
	zr, err := getZlibReader(bytes.NewReader(src))
	if err != nil {
		return 0
	}
	defer putZlibReader(zr)

	n, err := io.ReadFull(zr, dst)
	switch err {
	case nil, io.EOF, io.ErrUnexpectedEOF:
		return n
	default:
		return 0
	}
}

// Decompress expands a compressed packet body to at most want bytes.
//
// The LZ scheme is tried first. Some archives mark zlib streams with the LZ
// storage kind; when the LZ pass produces less than half the declared size
// the data is retried as zlib and the larger result wins. The returned
// slice may be shorter than want; nil means neither decoder produced
// anything. Callers compare len against the size the directory declares.
func Decompress(src []byte, want uint32) []byte {
	if len(src) == 0 || want == 0 {
		return nil
	}
	dst := make([]byte, want)
	n := LZDecompress(src, dst)
	if n < int(want)/2 {
		if zn := inflate(src, dst); zn > n {
			n = zn
		}
	}
	if n == 0 {
		return nil
	}
	return dst[:n]
}
