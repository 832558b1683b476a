package mcg

import (
	"encoding/binary"
	"fmt"
)

const (
	shapeTableHeaderSize = 8
	shapeDirEntrySize    = 8
	shapeHeaderSize      = 24

	// maxShapeCount rejects tables whose count field is implausible before
	// any offset in them is trusted.
	maxShapeCount = 10000

	// maxShapeExtent bounds each decoded dimension. Anything larger is a
	// corrupt header, not a big sprite.
	maxShapeExtent = 1024
)

// ShapeHeader is the 24-byte record at the start of each shape's data
// block. Origin packs the draw hotspot: x in the high 16 bits, y in the
// low 16.
type ShapeHeader struct {
	Bounds int32
	Origin int32
	XMin   int32
	YMin   int32
	XMax   int32
	YMax   int32
}

// Shape is one decoded image: 8-bit palette indices in row-major order,
// index 0 transparent. Every decode call produces a fresh buffer owned by
// the caller.
type Shape struct {
	Width    int
	Height   int
	HotspotX int
	HotspotY int
	Pixels   []byte
}

// PixelAt returns the palette index at (x, y), or 0 for any coordinate
// outside the shape.
func (s *Shape) PixelAt(x, y int) byte {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return 0
	}
	return s.Pixels[y*s.Width+x]
}

// ShapeTable is a parsed in-memory directory of RLE-coded shapes: a 4-byte
// version tag, a count, and per-shape offsets into the same buffer.
//
// The table keeps a reference to the buffer it was parsed from; decoding
// reads through it but never modifies it.
type ShapeTable struct {
	Version string

	data    []byte
	offsets []uint32
}

// ParseShapeTable validates the header and offset table of a shape table
// held in data.
//
// Offsets themselves are validated lazily per shape, so a table with some
// corrupt entries still serves its intact ones. Unit sprite packets using
// the undocumented six-byte-prefix encoding are detected and rejected with
// ErrMechSpriteFormat.
func ParseShapeTable(data []byte) (*ShapeTable, error) {
	if isMechSprite(data) {
		return nil, ErrMechSpriteFormat
	}
	if len(data) < shapeTableHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a shape table", ErrCorruptArchive, len(data))
	}
	count := binary.LittleEndian.Uint32(data[4:8])
	if count > maxShapeCount {
		return nil, fmt.Errorf("%w: shape count %d exceeds %d", ErrCorruptArchive, count, maxShapeCount)
	}
	tableEnd := shapeTableHeaderSize + int(count)*shapeDirEntrySize
	if len(data) < tableEnd {
		return nil, fmt.Errorf("%w: offset table needs %d bytes, have %d", ErrCorruptArchive, tableEnd, len(data))
	}

	t := &ShapeTable{
		Version: string(data[0:4]),
		data:    data,
		offsets: make([]uint32, count),
	}
	for i := range t.offsets {
		// 8 bytes per directory entry; the trailing 4 are reserved.
		t.offsets[i] = binary.LittleEndian.Uint32(data[shapeTableHeaderSize+i*shapeDirEntrySize:])
	}
	return t, nil
}

// Count returns the number of shapes in the table.
func (t *ShapeTable) Count() int { return len(t.offsets) }

// Header returns shape i's 24-byte header without decoding pixels.
func (t *ShapeTable) Header(i int) (ShapeHeader, error) {
	if i < 0 || i >= len(t.offsets) {
		return ShapeHeader{}, fmt.Errorf("shape %d out of range [0, %d)", i, len(t.offsets))
	}
	off := int(t.offsets[i])
	if off < 0 || off+shapeHeaderSize > len(t.data) {
		return ShapeHeader{}, fmt.Errorf("shape %d: %w: header at %d past %d bytes",
			i, ErrCorruptArchive, off, len(t.data))
	}
	b := t.data[off:]
	return ShapeHeader{
		Bounds: int32(binary.LittleEndian.Uint32(b[0:4])),
		Origin: int32(binary.LittleEndian.Uint32(b[4:8])),
		XMin:   int32(binary.LittleEndian.Uint32(b[8:12])),
		YMin:   int32(binary.LittleEndian.Uint32(b[12:16])),
		XMax:   int32(binary.LittleEndian.Uint32(b[16:20])),
		YMax:   int32(binary.LittleEndian.Uint32(b[20:24])),
	}, nil
}

// DecodeShape expands shape i's RLE scanlines into a fresh indexed pixel
// buffer.
//
// A malformed shape fails alone; the rest of the table stays usable.
// Extents outside (0, 1024] are rejected before any pixel is written.
func (t *ShapeTable) DecodeShape(i int) (*Shape, error) {
	hdr, err := t.Header(i)
	if err != nil {
		return nil, err
	}

	s := &Shape{
		Width:    int(hdr.XMax - hdr.XMin + 1),
		Height:   int(hdr.YMax - hdr.YMin + 1),
		HotspotX: int(int16(hdr.Origin >> 16)),
		HotspotY: int(int16(hdr.Origin & 0xFFFF)),
	}
	if s.Width <= 0 || s.Height <= 0 || s.Width > maxShapeExtent || s.Height > maxShapeExtent {
		return nil, fmt.Errorf("shape %d: %w: %dx%d", i, ErrShapeBounds, s.Width, s.Height)
	}
	s.Pixels = make([]byte, s.Width*s.Height)

	// The RLE body runs from just past the header to the next shape's
	// offset, or to the end of the buffer for the last shape.
	start := int(t.offsets[i]) + shapeHeaderSize
	if start >= len(t.data) {
		return nil, fmt.Errorf("shape %d: %w: no pixel data", i, ErrCorruptArchive)
	}
	end := len(t.data)
	if i+1 < len(t.offsets) {
		if next := int(t.offsets[i+1]); next > start && next <= len(t.data) {
			end = next
		}
	}

	decodeShapeRLE(t.data[start:end], s.Pixels, s.Width, s.Height)
	return s, nil
}

// decodeShapeRLE runs the scanline grammar over src into a width×height
// indexed buffer:
//
//	marker 0            end of scanline (reset column, advance row)
//	marker 1, count     skip count transparent pixels
//	even marker, color  write color for marker>>1 columns
//	odd marker, bytes…  write marker>>1 literal bytes
//
// Writes are clipped to the buffer; a run past the right edge never wraps
// onto the next row.
func decodeShapeRLE(src, dst []byte, width, height int) {
	var x, y, pos int
	for pos < len(src) && y < height {
		marker := src[pos]
		pos++

		switch {
		case marker == 0:
			x = 0
			y++

		case marker == 1:
			if pos >= len(src) {
				return
			}
			x += int(src[pos])
			pos++

		case marker&1 == 1:
			n := int(marker >> 1)
			for j := 0; j < n && pos < len(src); j++ {
				if x < width && y < height {
					dst[y*width+x] = src[pos]
				}
				x++
				pos++
			}

		default:
			if pos >= len(src) {
				return
			}
			color := src[pos]
			pos++
			for j := 0; j < int(marker>>1); j++ {
				if x < width && y < height {
					dst[y*width+x] = color
				}
				x++
			}
		}
	}
}

// LooksLikeShapeTable reports whether data plausibly starts a shape table.
// Version tags are short ASCII strings of digits and dots ("1.10"), which
// cheaply separates shape packets from sound and terrain data when
// scanning an archive.
func LooksLikeShapeTable(data []byte) bool {
	if len(data) < shapeTableHeaderSize {
		return false
	}
	for _, c := range data[:4] {
		if c != '.' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// isMechSprite detects the six-byte prefix (format id 0x0100, big-endian
// width and height) that unit sprite frames carry in front of their pixel
// data. The encoding behind it is still undocumented, so such frames are
// reported rather than decoded.
func isMechSprite(data []byte) bool {
	return len(data) >= 6 && data[0] == 0x00 && data[1] == 0x01
}
