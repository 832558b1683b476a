package mcg

import "errors"

// Sentinel errors returned by archive and decode operations.
//
// Callers should match with errors.Is; most errors surfaced by the package
// wrap one of these with positional context (entry index, path, offsets).
var (
	// ErrArchiveClosed is returned when an operation is attempted on a
	// handle whose Close method has already run.
	ErrArchiveClosed = errors.New("archive is closed")

	// ErrCorruptArchive covers structural failures: an entry count outside
	// sane bounds, a directory that extends past the file, or an offset
	// table pointing outside its buffer.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrEntryNotFound is returned by FindEntry when no directory record
	// matches the requested path.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnsupportedStorage is returned for packets stored with the Huffman
	// method, which the original engine shipped but never used and which
	// this package does not decode, and for any storage kind outside the
	// known set.
	ErrUnsupportedStorage = errors.New("unsupported storage kind")

	// ErrDecode indicates the entropy decoder produced no output for a
	// packet that declares a non-zero uncompressed size.
	ErrDecode = errors.New("decode failed")

	// ErrTruncatedDecode indicates the decoder produced some output but
	// fewer bytes than the packet declares. The partial buffer is returned
	// alongside the error.
	ErrTruncatedDecode = errors.New("decode produced fewer bytes than declared")

	// ErrShapeBounds is returned when a shape header declares an extent
	// outside (0, 1024] in either dimension.
	ErrShapeBounds = errors.New("shape dimensions out of bounds")

	// ErrMechSpriteFormat marks the six-byte-prefix sprite encoding found
	// in unit sprite packets. The encoding is not yet documented well
	// enough to decode; callers should skip such packets.
	ErrMechSpriteFormat = errors.New("mech sprite encoding not supported")

	// ErrNestingTooDeep is returned when recursive archive unwrapping
	// exceeds the configured depth ceiling.
	ErrNestingTooDeep = errors.New("archive nesting exceeds depth limit")

	// ErrReadOutOfRange is returned when a byte-range read would start or
	// end past the end of the underlying file or buffer.
	ErrReadOutOfRange = errors.New("read range outside archive bounds")
)
