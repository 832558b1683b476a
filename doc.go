// Package mcg reads the asset archives shipped with MechCommander Gold and
// decodes the indexed sprite images stored inside them, without requiring
// the original engine or any external tooling.
//
// The package is intended for asset extraction, inspection, and viewer-style
// tools that need random access to the game's data files.
//
// IMPLEMENTATION:
// Two container formats are supported. FST archives carry a directory of
// named files as fixed-width 262-byte records; PAK archives carry anonymous
// packets addressed by a seek table of offset words whose top three bits
// select the storage method. PAK packets may themselves be complete PAK
// archives (sprite containers nest one archive per unit), which SpriteFile
// unwraps recursively up to a configurable depth.
//
// Compressed payloads use either a variable-width LZW variant recovered from
// the original engine (9-bit codes growing to 12) or a zlib stream; both are
// decoded in memory from byte slices. Shape tables decoded from archive
// bytes yield run-length-coded scanlines which DecodeShape expands into
// bounds-checked indexed pixel buffers with a draw-origin hotspot.
//
// Archive files are memory-mapped, so a handle is safe for concurrent
// readers. Decoding allocates fresh buffers per call; an optional ARC cache
// can be installed in front of packet reads for hot-loop consumers.
package mcg
