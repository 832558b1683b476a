package mcg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgryski/go-farm"
)

const (
	// fstMaxEntries is the sanity ceiling on the directory count. A count
	// above it signals a file that is not an FST rather than a huge one.
	fstMaxEntries = 100000

	fstPathSize   = 250
	fstRecordSize = 12 + fstPathSize
)

// FSTEntry is one fixed-width directory record of an FST archive.
//
// Path is stored normalized: forward slashes, trailing NULs and whitespace
// stripped. Original case is preserved; lookups are case-insensitive.
type FSTEntry struct {
	DataOffset       uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Path             string
}

// Compressed reports whether the entry's payload is LZ-compressed on disk.
// The format marks uncompressed entries either with a zero compressed size
// or with equal sizes.
func (e *FSTEntry) Compressed() bool {
	return e.CompressedSize > 0 && e.CompressedSize < e.UncompressedSize
}

// FST provides random access to a flat archive: a directory of named files
// stored as 262-byte records after a leading count word.
//
// The file is memory-mapped, so all read methods are safe for concurrent
// use. Close invalidates the handle.
type FST struct {
	b       *backing
	path    string
	entries []FSTEntry

	// lookup maps the farm hash of each case-folded path to the indices of
	// entries with that hash. Hits are confirmed with a length-first
	// comparison, so a hash collision cannot return the wrong entry.
	lookup map[uint64][]int
}

// OpenFST opens the flat archive at path and parses its directory.
func OpenFST(path string) (*FST, error) {
	b, err := openBacking(path)
	if err != nil {
		return nil, err
	}
	f := &FST{b: b, path: path}
	if err := f.readDirectory(); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *FST) readDirectory() error {
	hdr, err := f.b.readRange(0, 4)
	if err != nil {
		return fmt.Errorf("%w: missing entry count", ErrCorruptArchive)
	}
	count := binary.LittleEndian.Uint32(hdr)
	if count > fstMaxEntries {
		return fmt.Errorf("%w: entry count %d exceeds %d", ErrCorruptArchive, count, fstMaxEntries)
	}

	raw, err := f.b.readRange(4, count*fstRecordSize)
	if err != nil {
		return fmt.Errorf("%w: directory extends past file end", ErrCorruptArchive)
	}

	f.entries = make([]FSTEntry, 0, count)
	f.lookup = make(map[uint64][]int, count)
	for i := uint32(0); i < count; i++ {
		rec := raw[i*fstRecordSize : (i+1)*fstRecordSize]
		e := FSTEntry{
			DataOffset:       binary.LittleEndian.Uint32(rec[0:4]),
			CompressedSize:   binary.LittleEndian.Uint32(rec[4:8]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:12]),
			Path:             normalizePath(rec[12:]),
		}
		idx := len(f.entries)
		f.entries = append(f.entries, e)
		h := farm.Hash64([]byte(strings.ToLower(e.Path)))
		f.lookup[h] = append(f.lookup[h], idx)
	}
	return nil
}

// normalizePath converts the on-disk path field to lookup form: backslashes
// become forward slashes and trailing NUL, space, CR, and LF bytes are
// stripped.
func normalizePath(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	p := strings.ReplaceAll(string(field), "\\", "/")
	return strings.TrimRight(p, "\x00 \r\n")
}

// Close unmaps the archive. Further reads fail with ErrArchiveClosed.
func (f *FST) Close() error { return f.b.close() }

// Path returns the filesystem path the archive was opened from.
func (f *FST) Path() string { return f.path }

// Entries returns the parsed directory. The slice is owned by the handle
// and must not be modified.
func (f *FST) Entries() []FSTEntry { return f.entries }

// NumEntries returns the number of directory records.
func (f *FST) NumEntries() int { return len(f.entries) }

// FindEntry locates a directory record by logical path.
//
// The comparison is case-insensitive and accepts either slash style.
// Candidates whose length differs are rejected before any character
// comparison.
func (f *FST) FindEntry(path string) (*FSTEntry, error) {
	search := strings.ReplaceAll(path, "\\", "/")
	h := farm.Hash64([]byte(strings.ToLower(search)))
	for _, i := range f.lookup[h] {
		e := &f.entries[i]
		if len(e.Path) != len(search) {
			continue
		}
		if strings.EqualFold(e.Path, search) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
}

// ReadFile reads and, if necessary, decompresses one entry's payload.
//
// FST archives compress exclusively with the LZ scheme; the zlib fallback
// inside Decompress still applies because some archives mislabel their
// streams. A short decode returns the partial data alongside
// ErrTruncatedDecode.
func (f *FST) ReadFile(e *FSTEntry) ([]byte, error) {
	if e.UncompressedSize == 0 {
		return nil, nil
	}
	readSize := e.UncompressedSize
	if e.Compressed() {
		readSize = e.CompressedSize
	}
	raw, err := f.b.readRange(int64(e.DataOffset), readSize)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Path, err)
	}
	if !e.Compressed() {
		return raw, nil
	}
	data := Decompress(raw, e.UncompressedSize)
	if data == nil {
		return nil, fmt.Errorf("entry %q: %w", e.Path, ErrDecode)
	}
	if uint32(len(data)) < e.UncompressedSize {
		return data, fmt.Errorf("entry %q: %w: got %d of %d bytes",
			e.Path, ErrTruncatedDecode, len(data), e.UncompressedSize)
	}
	return data, nil
}

// ReadPath is FindEntry followed by ReadFile.
func (f *FST) ReadPath(path string) ([]byte, error) {
	e, err := f.FindEntry(path)
	if err != nil {
		return nil, err
	}
	return f.ReadFile(e)
}

// ExtractAll writes every entry to outDir under its logical path, creating
// parent directories as needed.
//
// Extraction is tolerant: a corrupt record is skipped, not fatal, and the
// count of files actually written is returned. progress, if non-nil, is
// called before each entry with its index, the total, and the path.
func (f *FST) ExtractAll(outDir string, progress func(i, total int, path string)) (int, error) {
	if f.b == nil || f.b.ra == nil {
		return 0, ErrArchiveClosed
	}
	extracted := 0
	total := len(f.entries)
	for i := range f.entries {
		e := &f.entries[i]
		if progress != nil {
			progress(i, total, e.Path)
		}
		data, err := f.ReadFile(e)
		if err != nil && data == nil {
			continue
		}
		outPath := filepath.Join(outDir, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			continue
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			continue
		}
		extracted++
	}
	return extracted, nil
}
