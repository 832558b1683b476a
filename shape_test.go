package mcg

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShapeTable(t *testing.T) {
	data := buildShapeTable(t, "1.10", [][]byte{
		buildShapeBlock(2, 2, 1, 0, []byte{4, 5, 0, 4, 6, 0}),
		buildShapeBlock(1, 1, 0, 0, []byte{3, 9, 0}),
	})
	table, err := ParseShapeTable(data)
	require.NoError(t, err)
	assert.Equal(t, "1.10", table.Version)
	assert.Equal(t, 2, table.Count())
}

func TestParseShapeTableRejects(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		_, err := ParseShapeTable([]byte{0x31})
		assert.ErrorIs(t, err, ErrCorruptArchive)
	})

	t.Run("insane count", func(t *testing.T) {
		b := make([]byte, 8)
		copy(b, "1.10")
		binary.LittleEndian.PutUint32(b[4:], maxShapeCount+1)
		_, err := ParseShapeTable(b)
		assert.ErrorIs(t, err, ErrCorruptArchive)
	})

	t.Run("offset table past buffer", func(t *testing.T) {
		b := make([]byte, 12)
		copy(b, "1.10")
		binary.LittleEndian.PutUint32(b[4:], 5) // needs 48 bytes, has 12
		_, err := ParseShapeTable(b)
		assert.ErrorIs(t, err, ErrCorruptArchive)
	})

	t.Run("mech sprite prefix", func(t *testing.T) {
		b := []byte{0x00, 0x01, 0x00, 0x40, 0x00, 0x30, 0xAA, 0xBB}
		_, err := ParseShapeTable(b)
		assert.ErrorIs(t, err, ErrMechSpriteFormat)
	})
}

func TestDecodeShapeRLEGrammar(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		rle    []byte
		pixels []byte
	}{
		{
			name: "run packet",
			w:    3, h: 1,
			// even marker 6 -> run of 3, color 7
			rle:    []byte{6, 7, 0},
			pixels: []byte{7, 7, 7},
		},
		{
			name: "literal packet",
			w:    3, h: 1,
			// odd marker 7 -> 3 literal bytes
			rle:    []byte{7, 1, 2, 3, 0},
			pixels: []byte{1, 2, 3},
		},
		{
			name: "skip leaves transparency",
			w:    4, h: 1,
			// skip 2, then literal 9
			rle:    []byte{1, 2, 3, 9, 0},
			pixels: []byte{0, 0, 9, 0},
		},
		{
			name: "end of line resets column",
			w:    2, h: 2,
			rle:    []byte{3, 5, 0, 3, 6, 0},
			pixels: []byte{5, 0, 6, 0},
		},
		{
			name: "run clipped at right edge does not wrap",
			w:    2, h: 2,
			// run of 5 on a 2-wide row, then next row gets one pixel
			rle:    []byte{10, 3, 0, 3, 4, 0},
			pixels: []byte{3, 3, 4, 0},
		},
		{
			name: "literal clipped at right edge does not wrap",
			w:    2, h: 2,
			rle:    []byte{9, 1, 2, 3, 4, 0, 3, 8, 0},
			pixels: []byte{1, 2, 8, 0},
		},
		{
			name: "truncated stream stops cleanly",
			w:    2, h: 2,
			rle:    []byte{3, 5, 0, 6},
			pixels: []byte{5, 0, 0, 0},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := buildShapeTable(t, "1.10", [][]byte{
				buildShapeBlock(tc.w, tc.h, 0, 0, tc.rle),
			})
			table, err := ParseShapeTable(data)
			require.NoError(t, err)

			s, err := table.DecodeShape(0)
			require.NoError(t, err)
			assert.Equal(t, tc.w, s.Width)
			assert.Equal(t, tc.h, s.Height)
			assert.Equal(t, tc.pixels, s.Pixels)
		})
	}
}

func TestDecodeShapeHotspot(t *testing.T) {
	data := buildShapeTable(t, "1.10", [][]byte{
		buildShapeBlock(4, 3, 17, -5, []byte{3, 1, 0}),
	})
	table, err := ParseShapeTable(data)
	require.NoError(t, err)

	s, err := table.DecodeShape(0)
	require.NoError(t, err)
	assert.Equal(t, 17, s.HotspotX)
	assert.Equal(t, -5, s.HotspotY)
}

func TestDecodeShapeIdempotent(t *testing.T) {
	data := buildShapeTable(t, "1.10", [][]byte{
		buildShapeBlock(3, 2, 0, 0, []byte{6, 2, 0, 5, 8, 9, 0}),
	})
	table, err := ParseShapeTable(data)
	require.NoError(t, err)

	a, err := table.DecodeShape(0)
	require.NoError(t, err)
	b, err := table.DecodeShape(0)
	require.NoError(t, err)
	assert.Equal(t, a.Pixels, b.Pixels)
	// Fresh buffer per decode: callers own the result.
	assert.NotSame(t, &a.Pixels[0], &b.Pixels[0])
}

func TestDecodeShapeRejectsBadExtents(t *testing.T) {
	blocks := [][]byte{
		buildShapeBlock(1025, 2, 0, 0, []byte{0}),
		buildShapeBlock(2, 1025, 0, 0, []byte{0}),
		buildShapeBlock(0, 4, 0, 0, []byte{0}),
	}
	data := buildShapeTable(t, "1.10", blocks)
	table, err := ParseShapeTable(data)
	require.NoError(t, err)

	for i := range blocks {
		s, err := table.DecodeShape(i)
		assert.ErrorIs(t, err, ErrShapeBounds, "shape %d", i)
		assert.Nil(t, s, "shape %d must not be partially decoded", i)
	}
}

func TestDecodeShapeCorruptOffsetIsolated(t *testing.T) {
	data := buildShapeTable(t, "1.10", [][]byte{
		buildShapeBlock(2, 1, 0, 0, []byte{3, 5, 0}),
		buildShapeBlock(2, 1, 0, 0, []byte{3, 6, 0}),
	})
	// Point the second shape's offset past the buffer.
	binary.LittleEndian.PutUint32(data[shapeTableHeaderSize+shapeDirEntrySize:], uint32(len(data)+100))

	table, err := ParseShapeTable(data)
	require.NoError(t, err)

	_, err = table.DecodeShape(1)
	assert.ErrorIs(t, err, ErrCorruptArchive)

	// The intact sibling still decodes.
	s, err := table.DecodeShape(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 0}, s.Pixels)
}

func TestShapePixelAt(t *testing.T) {
	s := &Shape{Width: 2, Height: 1, Pixels: []byte{3, 4}}
	assert.Equal(t, byte(3), s.PixelAt(0, 0))
	assert.Equal(t, byte(4), s.PixelAt(1, 0))
	assert.Equal(t, byte(0), s.PixelAt(-1, 0))
	assert.Equal(t, byte(0), s.PixelAt(2, 0))
	assert.Equal(t, byte(0), s.PixelAt(0, 1))
}

func TestLooksLikeShapeTable(t *testing.T) {
	assert.True(t, LooksLikeShapeTable([]byte("1.10\x02\x00\x00\x00")))
	assert.True(t, LooksLikeShapeTable([]byte("2.00\x00\x00\x00\x00")))
	assert.False(t, LooksLikeShapeTable([]byte("RIFF\x00\x00\x00\x00")))
	assert.False(t, LooksLikeShapeTable([]byte("1.1")))
	assert.False(t, LooksLikeShapeTable([]byte{0xCE, 0xFA, 0xED, 0xFE, 0, 0, 0, 0}))
}
