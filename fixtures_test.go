package mcg

// Fixture builders that synthesize archive bytes for tests. Layouts mirror
// the on-disk formats exactly: FST fixtures place their payload region
// immediately after the directory, PAK fixtures tile packets back to back
// so derived sizes cover the whole file.

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// writeTempFile persists data under t.TempDir and returns its path.
func writeTempFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// fstFixtureEntry is one file to place in a synthetic FST archive.
type fstFixtureEntry struct {
	path     string
	data     []byte
	compress bool // store the LZ-compressed form
}

// buildFST assembles a flat archive: count word, 262-byte records, then the
// payload region.
func buildFST(t testing.TB, entries []fstFixtureEntry) []byte {
	t.Helper()

	payloads := make([][]byte, len(entries))
	compressed := make([]bool, len(entries))
	for i, e := range entries {
		if e.compress {
			comp := LZCompress(e.data)
			require.Less(t, len(comp), len(e.data), "fixture data must actually compress")
			payloads[i] = comp
			compressed[i] = true
		} else {
			payloads[i] = e.data
		}
	}

	dirSize := 4 + len(entries)*fstRecordSize
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(entries))))

	offset := dirSize
	for i, e := range entries {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(offset)))
		csize := uint32(0)
		if compressed[i] {
			csize = uint32(len(payloads[i]))
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, csize))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(e.data))))

		var pathField [fstPathSize]byte
		require.LessOrEqual(t, len(e.path), fstPathSize)
		copy(pathField[:], e.path)
		buf.Write(pathField[:])

		offset += len(payloads[i])
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

// pakFixturePacket is one packet to place in a synthetic PAK archive.
// data is the logical (decompressed) content; raw overrides the stored
// bytes verbatim for corrupt-packet cases.
type pakFixturePacket struct {
	kind StorageKind
	data []byte
	raw  []byte
}

// buildPAK assembles a seek-table archive: magic, first-offset word, one
// directory word per packet, then packet bodies back to back.
func buildPAK(t testing.TB, packets []pakFixturePacket) []byte {
	t.Helper()

	bodies := make([][]byte, len(packets))
	for i, p := range packets {
		if p.raw != nil {
			bodies[i] = p.raw
			continue
		}
		switch p.kind {
		case StorageNull:
			// zero-length hole
		case StorageRaw, StorageFileWithinFile, StorageHuffman:
			bodies[i] = p.data
		case StorageLZ:
			comp := LZCompress(p.data)
			body := make([]byte, 4+len(comp))
			binary.LittleEndian.PutUint32(body, uint32(len(p.data)))
			copy(body[4:], comp)
			bodies[i] = body
		case StorageDeflate:
			var zbuf bytes.Buffer
			zw := zlib.NewWriter(&zbuf)
			_, err := zw.Write(p.data)
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			body := make([]byte, 4+zbuf.Len())
			binary.LittleEndian.PutUint32(body, uint32(len(p.data)))
			copy(body[4:], zbuf.Bytes())
			bodies[i] = body
		default:
			t.Fatalf("fixture cannot store kind %s", p.kind)
		}
	}

	headerSize := pakHeaderSize + 4*len(packets)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(PAKMagic)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(headerSize)))

	offset := uint32(headerSize)
	for i, p := range packets {
		word := offset&pakOffsetMask | uint32(p.kind)<<pakKindShift
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, word))
		offset += uint32(len(bodies[i]))
	}
	for _, b := range bodies {
		buf.Write(b)
	}
	return buf.Bytes()
}

// buildShapeBlock assembles one shape's 24-byte header followed by its RLE
// stream. Hotspot x sits in the high 16 bits of the origin word.
func buildShapeBlock(w, h, hx, hy int, rle []byte) []byte {
	var buf bytes.Buffer
	origin := int32(hx)<<16 | int32(hy)&0xFFFF
	for _, v := range []int32{0, origin, 0, 0, int32(w - 1), int32(h - 1)} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(rle)
	return buf.Bytes()
}

// buildShapeTable assembles a shape table from prebuilt shape blocks.
func buildShapeTable(t testing.TB, version string, blocks [][]byte) []byte {
	t.Helper()
	require.Len(t, version, 4)

	var buf bytes.Buffer
	buf.WriteString(version)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(blocks))))

	offset := uint32(shapeTableHeaderSize + len(blocks)*shapeDirEntrySize)
	for _, b := range blocks {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, offset))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0))) // reserved
		offset += uint32(len(b))
	}
	for _, b := range blocks {
		buf.Write(b)
	}
	return buf.Bytes()
}

// writeCodes9 packs a sequence of 9-bit codes LSB-first, for hand-built LZ
// streams that stay below the first width growth.
func writeCodes9(codes []uint32) []byte {
	var out []byte
	var bitBuffer, bits uint32
	for _, c := range codes {
		bitBuffer |= c << bits
		bits += 9
		for bits >= 8 {
			out = append(out, byte(bitBuffer))
			bitBuffer >>= 8
			bits -= 8
		}
	}
	if bits > 0 {
		out = append(out, byte(bitBuffer))
	}
	return out
}

// repetitiveData generates compressible data with repeated substrings.
func repetitiveData(n int) []byte {
	phrases := [][]byte{
		[]byte("the quick brown mech stomps over the ridge "),
		[]byte("0123456789abcdef"),
		bytes.Repeat([]byte{0xAA}, 37),
		[]byte("shadow cat shadow cat shadow cat "),
	}
	out := make([]byte, 0, n)
	for i := 0; len(out) < n; i++ {
		out = append(out, phrases[i%len(phrases)]...)
	}
	return out[:n]
}
