package mcg

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// PAKMagic is the nominal signature of a seek-table archive. Some shipped
// variants substitute a checksum here, so the value is advisory: open does
// not gate on it, but Magic exposes it so tools can warn.
const PAKMagic = 0xFEEDFACE

const (
	pakHeaderSize = 8

	// Each seek-table word packs a storage kind into its top 3 bits and a
	// byte offset into the bottom 29.
	pakKindShift  = 29
	pakOffsetMask = 1<<pakKindShift - 1

	// pakMaxPackets is the sanity ceiling on the derived packet count.
	pakMaxPackets = 1000000
)

// StorageKind is the storage method tag carried in the top 3 bits of a
// seek-table word.
type StorageKind uint8

const (
	// StorageRaw packets are stored verbatim.
	StorageRaw StorageKind = 0

	// StorageFileWithinFile packets embed a foreign file verbatim.
	StorageFileWithinFile StorageKind = 1

	// StorageLZ packets are compressed with the variable-width LZW scheme.
	StorageLZ StorageKind = 2

	// StorageHuffman packets use a Huffman coder the engine shipped but
	// never wrote; reading one fails with ErrUnsupportedStorage.
	StorageHuffman StorageKind = 3

	// StorageDeflate packets are zlib streams.
	StorageDeflate StorageKind = 4

	// StorageNull marks a zero-length hole in the packet sequence. It is
	// skipped by extraction and reads back as empty without error.
	StorageNull StorageKind = 7
)

var storageKindNames = map[StorageKind]string{
	StorageRaw:            "raw",
	StorageFileWithinFile: "file-within-file",
	StorageLZ:             "lz",
	StorageHuffman:        "huffman",
	StorageDeflate:        "deflate",
	StorageNull:           "null",
}

func (k StorageKind) String() string {
	if s, ok := storageKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// PAKEntry describes one packet of a seek-table archive.
//
// PackedSize is derived from the next entry's offset (end of file for the
// last entry). UnpackedSize for compressed kinds comes from the 4-byte
// little-endian prefix at the packet's own offset, read once at open time
// so size queries never touch the file again.
type PAKEntry struct {
	Offset       uint32
	Kind         StorageKind
	PackedSize   uint32
	UnpackedSize uint32
}

// PAK provides random access to a seek-table archive: anonymous packets
// addressed by a directory of offset words.
//
// File-backed archives are memory-mapped and safe for concurrent readers.
// A PAK parsed from an in-memory packet (see OpenPAKBytes) shares the same
// behavior over the decompressed buffer.
type PAK struct {
	b       *backing
	path    string
	magic   uint32
	entries []PAKEntry
	cache   *packetCache
}

// OpenPAK opens the archive at path and parses its seek table.
func OpenPAK(path string, opts ...PAKOption) (*PAK, error) {
	b, err := openBacking(path)
	if err != nil {
		return nil, err
	}
	p, err := parsePAK(b, path, opts)
	if err != nil {
		_ = b.close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// OpenPAKBytes parses a seek-table archive held in memory. Nested sprite
// containers use this on decompressed outer packets.
func OpenPAKBytes(data []byte, opts ...PAKOption) (*PAK, error) {
	return parsePAK(bytesBacking(data), "", opts)
}

func parsePAK(b *backing, path string, opts []PAKOption) (*PAK, error) {
	var cfg pakConfig
	for _, o := range opts {
		o(&cfg)
	}

	hdr, err := b.readRange(0, pakHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: missing header", ErrCorruptArchive)
	}
	p := &PAK{b: b, path: path, magic: binary.LittleEndian.Uint32(hdr[0:4])}

	firstOffset := binary.LittleEndian.Uint32(hdr[4:8]) & pakOffsetMask
	if firstOffset/4 < 2 {
		return nil, fmt.Errorf("%w: first offset %d inside header", ErrCorruptArchive, firstOffset)
	}
	count := firstOffset/4 - 2
	if count > pakMaxPackets || int64(firstOffset) > b.size {
		return nil, fmt.Errorf("%w: %d packets, first offset %d, file size %d",
			ErrCorruptArchive, count, firstOffset, b.size)
	}

	words, err := b.readRange(pakHeaderSize, count*4)
	if err != nil {
		return nil, fmt.Errorf("%w: seek table extends past file end", ErrCorruptArchive)
	}

	p.entries = make([]PAKEntry, count)
	for i := uint32(0); i < count; i++ {
		w := binary.LittleEndian.Uint32(words[i*4 : i*4+4])
		p.entries[i] = PAKEntry{
			Offset: w & pakOffsetMask,
			Kind:   StorageKind(w >> pakKindShift),
		}
	}
	for i := range p.entries {
		e := &p.entries[i]
		next := uint32(b.size)
		if i+1 < len(p.entries) {
			next = p.entries[i+1].Offset
		}
		if next < e.Offset || int64(next) > b.size {
			// A directory word pointing backwards or past the end makes
			// the packet unreadable but not the whole archive.
			continue
		}
		e.PackedSize = next - e.Offset

		switch e.Kind {
		case StorageRaw, StorageFileWithinFile:
			e.UnpackedSize = e.PackedSize
		case StorageLZ, StorageDeflate:
			// Pay one extra read per compressed packet now so PacketSize
			// never has to touch the file again.
			if e.PackedSize >= 4 {
				if pre, err := b.readRange(int64(e.Offset), 4); err == nil {
					e.UnpackedSize = binary.LittleEndian.Uint32(pre)
				}
			}
		}
	}

	if cfg.cacheEntries > 0 {
		c, err := newPacketCache(cfg.cacheEntries)
		if err != nil {
			return nil, err
		}
		p.cache = c
	}
	return p, nil
}

// Close releases the underlying mapping. In-memory archives become
// unreadable but hold no resources.
func (p *PAK) Close() error { return p.b.close() }

// Path returns the filesystem path the archive was opened from, or "" for
// an in-memory archive.
func (p *PAK) Path() string { return p.path }

// Magic returns the archive's signature word. Compare against PAKMagic;
// a mismatch usually means a checksum-stamped variant, not corruption.
func (p *PAK) Magic() uint32 { return p.magic }

// NumPackets returns the number of seek-table entries, null holes included.
func (p *PAK) NumPackets() int { return len(p.entries) }

// Entries returns the parsed seek table. The slice is owned by the handle
// and must not be modified.
func (p *PAK) Entries() []PAKEntry { return p.entries }

// Entry returns the directory record for one packet.
func (p *PAK) Entry(i int) (*PAKEntry, error) {
	if i < 0 || i >= len(p.entries) {
		return nil, fmt.Errorf("packet %d out of range [0, %d)", i, len(p.entries))
	}
	return &p.entries[i], nil
}

// StorageKindOf returns the storage kind of packet i, or StorageNull when
// i is out of range.
func (p *PAK) StorageKindOf(i int) StorageKind {
	if i < 0 || i >= len(p.entries) {
		return StorageNull
	}
	return p.entries[i].Kind
}

// PacketSize returns the unpacked size of packet i without any I/O, or 0
// when i is out of range.
func (p *PAK) PacketSize(i int) uint32 {
	if i < 0 || i >= len(p.entries) {
		return 0
	}
	return p.entries[i].UnpackedSize
}

// ReadPacketRaw returns packet i's bytes as stored, without decompression
// and including any uncompressed-size prefix.
func (p *PAK) ReadPacketRaw(i int) ([]byte, error) {
	e, err := p.Entry(i)
	if err != nil {
		return nil, err
	}
	if e.PackedSize == 0 {
		return nil, nil
	}
	return p.b.readRange(int64(e.Offset), e.PackedSize)
}

// ReadPacket reads packet i and undoes its storage transform.
//
// Null packets read back as empty with no error. Huffman packets fail with
// ErrUnsupportedStorage. A compressed packet that expands to fewer bytes
// than its prefix declares returns the partial data together with
// ErrTruncatedDecode. Each call decodes from scratch unless the handle was
// opened with WithPacketCache.
func (p *PAK) ReadPacket(i int) ([]byte, error) {
	e, err := p.Entry(i)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		if data, ok := p.cache.get(i); ok {
			return data, nil
		}
	}

	data, err := p.readPacketUncached(e, i)
	if err == nil && p.cache != nil && data != nil {
		p.cache.add(i, data)
	}
	return data, err
}

func (p *PAK) readPacketUncached(e *PAKEntry, i int) ([]byte, error) {
	switch e.Kind {
	case StorageNull:
		return nil, nil

	case StorageRaw, StorageFileWithinFile:
		if e.PackedSize == 0 {
			return nil, nil
		}
		return p.b.readRange(int64(e.Offset), e.PackedSize)

	case StorageLZ, StorageDeflate:
		if e.PackedSize < 4 {
			return nil, fmt.Errorf("packet %d: %w: compressed packet of %d bytes",
				i, ErrCorruptArchive, e.PackedSize)
		}
		if e.UnpackedSize == 0 {
			return nil, nil
		}
		body, err := p.b.readRange(int64(e.Offset)+4, e.PackedSize-4)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i, err)
		}
		var data []byte
		if e.Kind == StorageDeflate {
			dst := make([]byte, e.UnpackedSize)
			if n := inflate(body, dst); n > 0 {
				data = dst[:n]
			}
		} else {
			data = Decompress(body, e.UnpackedSize)
		}
		if data == nil {
			return nil, fmt.Errorf("packet %d (%s): %w", i, e.Kind, ErrDecode)
		}
		if uint32(len(data)) < e.UnpackedSize {
			return data, fmt.Errorf("packet %d (%s): %w: got %d of %d bytes",
				i, e.Kind, ErrTruncatedDecode, len(data), e.UnpackedSize)
		}
		return data, nil

	case StorageHuffman:
		return nil, fmt.Errorf("packet %d: %w: huffman", i, ErrUnsupportedStorage)

	default:
		return nil, fmt.Errorf("packet %d: %w: %s", i, ErrUnsupportedStorage, e.Kind)
	}
}

// ExtractAll writes every non-null packet to outDir, named by zero-padded
// index with the given prefix, e.g. "packet_00042.bin".
//
// Per-packet failures are skipped; the count of packets actually written is
// returned. progress, if non-nil, is called before each packet.
func (p *PAK) ExtractAll(outDir, prefix string, progress func(i, total int)) (int, error) {
	if p.b == nil || p.b.ra == nil {
		return 0, ErrArchiveClosed
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}
	extracted := 0
	total := len(p.entries)
	for i := range p.entries {
		if progress != nil {
			progress(i, total)
		}
		if p.entries[i].Kind == StorageNull {
			continue
		}
		data, err := p.ReadPacket(i)
		if err != nil && data == nil {
			continue
		}
		name := fmt.Sprintf("%s%05d.bin", prefix, i)
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			continue
		}
		extracted++
	}
	return extracted, nil
}
