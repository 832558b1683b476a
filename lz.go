package mcg

// Variable-width LZW decoder recovered from the original engine's x86
// assembly, plus a bitstream-compatible encoder used by tests and archive
// tooling.
//
// Codes start at 9 bits and grow to 12 as the chain table fills. Three code
// points are reserved: 256 clears the table, 257 ends the stream, and 258 is
// the first chain index; everything below 256 is a literal byte.

const (
	lzClear     = 256 // reset the chain table and code width
	lzEOD       = 257 // end of data
	lzFirstFree = 258 // first chain table index

	lzBaseBits = 9
	lzMaxBits  = 12

	// The engine allocated a 16 KiB arena of 3-byte entries.
	lzTableSize = 16384 / 3

	lzStackSize = 4096
)

// lzEntry is one link in the chain table: a back-reference to an earlier
// code plus the byte appended to that code's expansion.
type lzEntry struct {
	chain  uint16
	suffix byte
}

// LZDecompress expands src into dst and returns the number of bytes
// produced.
//
// Output beyond len(dst) is dropped; the count never exceeds len(dst), so
// callers can compare the return value against the size a packet declares.
// A return of 0 means the stream was empty or corrupt. The function never
// panics on malformed input: a chain that overflows the reversal stack is
// reported as failure.
func LZDecompress(src, dst []byte) int {
	if len(src) < 3 || len(dst) == 0 {
		return 0
	}

	var table [lzTableSize]lzEntry
	var stack [lzStackSize]byte

	codeMask := uint32(1<<lzBaseBits - 1)
	maxIndex := uint32(1 << lzBaseBits)
	freeIndex := uint32(lzFirstFree)
	bitCount := uint32(lzBaseBits)

	var oldChain uint32
	var oldSuffix byte

	srcPos := 0
	var bitBuffer, bitsInBuffer uint32
	destPos := 0

	readCode := func() uint32 {
		for bitsInBuffer < bitCount && srcPos < len(src) {
			bitBuffer |= uint32(src[srcPos]) << bitsInBuffer
			srcPos++
			bitsInBuffer += 8
		}
		if bitsInBuffer < bitCount {
			// Ran dry mid-code: only trailing pad bits remain.
			return lzEOD
		}
		code := bitBuffer & codeMask
		bitBuffer >>= bitCount
		bitsInBuffer -= bitCount
		return code
	}

	reset := func() {
		bitCount = lzBaseBits
		codeMask = 1<<lzBaseBits - 1
		maxIndex = 1 << lzBaseBits
		freeIndex = lzFirstFree
	}

	// A clear is always followed by one raw byte code, never a chain
	// reference; the same protocol applies at the start of the stream.
	readFirstCode := func() bool {
		for {
			code := readCode()
			if code == lzEOD {
				return false
			}
			if code == lzClear {
				reset()
				continue
			}
			oldChain = code
			oldSuffix = byte(code)
			if destPos < len(dst) {
				dst[destPos] = oldSuffix
				destPos++
			}
			return true
		}
	}

	if !readFirstCode() {
		return destPos
	}

	for {
		code := readCode()
		if code == lzEOD {
			break
		}
		if code == lzClear {
			reset()
			if !readFirstCode() {
				break
			}
			continue
		}

		newChain := code
		stackPos := 0

		// Standard LZW use-before-define: the encoder can emit a code one
		// ahead of our table. Resolve it as the previous string plus its
		// own first byte.
		if code >= freeIndex {
			stack[0] = oldSuffix
			stackPos = 1
			code = oldChain
		}

		for code >= lzFirstFree {
			if stackPos >= lzStackSize {
				return 0 // chain never terminates: corrupt input
			}
			e := table[code-lzFirstFree]
			stack[stackPos] = e.suffix
			stackPos++
			code = uint32(e.chain)
		}

		// The root of the chain is a literal and the first byte emitted;
		// it is also the suffix recorded for the next table entry.
		oldSuffix = byte(code)
		if destPos < len(dst) {
			dst[destPos] = oldSuffix
			destPos++
		}
		for stackPos > 0 {
			stackPos--
			if destPos < len(dst) {
				dst[destPos] = stack[stackPos]
				destPos++
			}
		}

		if freeIndex < lzTableSize+lzFirstFree {
			table[freeIndex-lzFirstFree] = lzEntry{chain: uint16(oldChain), suffix: oldSuffix}
			freeIndex++
			if freeIndex >= maxIndex && bitCount < lzMaxBits {
				bitCount++
				maxIndex <<= 1
				codeMask = codeMask<<1 | 1
			}
		}

		oldChain = newChain
	}

	return destPos
}

// LZCompress encodes src into a stream that LZDecompress expands back to
// src exactly.
//
// The encoder mirrors the decoder's table growth so that code widths stay
// in lockstep, and clears the dictionary when the 12-bit code space is
// exhausted. An empty input produces a bare end-of-data marker.
func LZCompress(src []byte) []byte {
	out := make([]byte, 0, len(src)/2+8)

	var bitBuffer, bitsInBuffer uint32
	writeCode := func(code, width uint32) {
		bitBuffer |= code << bitsInBuffer
		bitsInBuffer += width
		for bitsInBuffer >= 8 {
			out = append(out, byte(bitBuffer))
			bitBuffer >>= 8
			bitsInBuffer -= 8
		}
	}

	// Decoder mirror state. The decoder defines one table entry per code it
	// consumes after the first, so the width used for code n+1 depends on
	// how many codes precede it, not on this side's dictionary size.
	decFree := uint32(lzFirstFree)
	decMax := uint32(1 << lzBaseBits)
	decWidth := uint32(lzBaseBits)
	firstSinceClear := true

	emit := func(code uint32) {
		writeCode(code, decWidth)
		if firstSinceClear {
			firstSinceClear = false
			return
		}
		decFree++
		if decFree >= decMax && decWidth < lzMaxBits {
			decWidth++
			decMax <<= 1
		}
	}

	dict := make(map[uint32]uint32, 1<<lzMaxBits)
	encFree := uint32(lzFirstFree)

	clear := func() {
		writeCode(lzClear, decWidth)
		dict = make(map[uint32]uint32, 1<<lzMaxBits)
		encFree = lzFirstFree
		decFree = lzFirstFree
		decMax = 1 << lzBaseBits
		decWidth = lzBaseBits
		firstSinceClear = true
	}

	prefix := int32(-1)
	for _, c := range src {
		if prefix < 0 {
			prefix = int32(c)
			continue
		}
		key := uint32(prefix)<<8 | uint32(c)
		if code, ok := dict[key]; ok {
			prefix = int32(code)
			continue
		}
		emit(uint32(prefix))
		if encFree < 1<<lzMaxBits {
			dict[key] = encFree
			encFree++
		} else {
			clear()
		}
		prefix = int32(c)
	}
	if prefix >= 0 {
		emit(uint32(prefix))
	}
	writeCode(lzEOD, decWidth)
	if bitsInBuffer > 0 {
		out = append(out, byte(bitBuffer))
	}
	return out
}
