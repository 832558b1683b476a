package mcg

import (
	"encoding/binary"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sprite container PAKs nest one full archive per unit: each outer packet,
// once decompressed, is itself a seek-table archive whose packets are shape
// tables (or, for some units, the undocumented mech-sprite frames). The
// format enforces no nesting depth; the depth ceiling here is policy
// against adversarial archives, not a format rule.

const (
	defaultNestingDepth = 4

	// defaultFrameCacheSize bounds the decoded-frame LRU. Animation
	// playback revisits the same few frames constantly.
	defaultFrameCacheSize = 256
)

// spriteConfig carries open-time options for a SpriteFile.
type spriteConfig struct {
	scanLimit  int
	maxDepth   int
	frameCache int
}

// SpriteOption configures OpenSpriteFile.
type SpriteOption func(*spriteConfig)

// WithScanLimit bounds how many outer packets are parsed at open time.
// The original engine scanned only the first 3 to keep startup fast; the
// default here is to scan them all.
func WithScanLimit(n int) SpriteOption {
	return func(c *spriteConfig) { c.scanLimit = n }
}

// WithMaxDepth sets the recursion ceiling for archives nested inside
// archives. The default is 4.
func WithMaxDepth(n int) SpriteOption {
	return func(c *spriteConfig) { c.maxDepth = n }
}

// WithFrameCache sizes the decoded-frame LRU. Zero disables caching so
// every Frame call decodes from scratch.
func WithFrameCache(n int) SpriteOption {
	return func(c *spriteConfig) { c.frameCache = n }
}

// SpriteSet holds the shape tables recovered from one outer packet.
type SpriteSet struct {
	// Tables are the shape tables found across all nesting levels of the
	// packet, in packet order.
	Tables []*ShapeTable

	// MechSprites counts inner packets using the unsupported six-byte
	// prefix encoding. They are reported, never decoded.
	MechSprites int
}

// NumShapes returns the total shape count across the set's tables.
func (s *SpriteSet) NumShapes() int {
	n := 0
	for _, t := range s.Tables {
		n += t.Count()
	}
	return n
}

// frameKey addresses one decoded shape within a SpriteFile.
type frameKey struct {
	set, table, shape int
}

// SpriteFile reads a sprite container: an outer PAK whose packets are inner
// PAK archives of shape tables.
type SpriteFile struct {
	pak    *PAK
	sets   []*SpriteSet // indexed by outer packet; nil where nothing parsed
	loaded int

	frames *lru.Cache[frameKey, *Shape] // nil when caching is disabled
}

// OpenSpriteFile opens the container at path and scans its outer packets
// for nested sprite sets.
//
// An outer packet that fails to decompress or does not parse as a nested
// archive is skipped, not fatal: Set returns nil for that index. Only a
// failure to open the outer archive itself is an error.
func OpenSpriteFile(path string, opts ...SpriteOption) (*SpriteFile, error) {
	cfg := spriteConfig{maxDepth: defaultNestingDepth, frameCache: defaultFrameCacheSize}
	for _, o := range opts {
		o(&cfg)
	}

	pak, err := OpenPAK(path)
	if err != nil {
		return nil, err
	}

	sf := &SpriteFile{pak: pak, sets: make([]*SpriteSet, pak.NumPackets())}
	if cfg.frameCache > 0 {
		sf.frames, err = lru.New[frameKey, *Shape](cfg.frameCache)
		if err != nil {
			_ = pak.Close()
			return nil, fmt.Errorf("frame cache: %w", err)
		}
	}

	limit := pak.NumPackets()
	if cfg.scanLimit > 0 && cfg.scanLimit < limit {
		limit = cfg.scanLimit
	}
	for i := 0; i < limit; i++ {
		data, err := pak.ReadPacket(i)
		if err != nil || len(data) == 0 {
			continue
		}
		set, err := parseSpriteSet(data, cfg.maxDepth)
		if err != nil {
			continue
		}
		sf.sets[i] = set
		sf.loaded++
	}
	return sf, nil
}

// parseSpriteSet parses data as a nested archive and collects every shape
// table reachable within depth levels of nesting.
func parseSpriteSet(data []byte, depth int) (*SpriteSet, error) {
	if depth <= 0 {
		return nil, ErrNestingTooDeep
	}
	if !isPAKBuffer(data) {
		return nil, fmt.Errorf("%w: packet is not a nested archive", ErrCorruptArchive)
	}
	inner, err := OpenPAKBytes(data)
	if err != nil {
		return nil, err
	}

	set := &SpriteSet{}
	for i := 0; i < inner.NumPackets(); i++ {
		pdata, err := inner.ReadPacket(i)
		if err != nil || len(pdata) == 0 {
			continue
		}
		if isPAKBuffer(pdata) {
			sub, err := parseSpriteSet(pdata, depth-1)
			if err != nil {
				// A subtree that is too deep or holds nothing is skipped;
				// sibling packets may still parse.
				continue
			}
			set.Tables = append(set.Tables, sub.Tables...)
			set.MechSprites += sub.MechSprites
			continue
		}
		table, err := ParseShapeTable(pdata)
		if err != nil {
			if errors.Is(err, ErrMechSpriteFormat) {
				set.MechSprites++
			}
			continue
		}
		set.Tables = append(set.Tables, table)
	}
	if len(set.Tables) == 0 && set.MechSprites == 0 {
		return nil, fmt.Errorf("%w: nested archive holds no shape tables", ErrCorruptArchive)
	}
	return set, nil
}

// isPAKBuffer reports whether data starts with a seek-table archive header.
// Unlike file opens, nested scanning gates on the magic: a decompressed
// packet with a checksum-stamped header cannot be told apart from pixel
// data, so only exact matches recurse.
func isPAKBuffer(data []byte) bool {
	return len(data) >= pakHeaderSize && binary.LittleEndian.Uint32(data[0:4]) == PAKMagic
}

// Close releases the outer archive.
func (sf *SpriteFile) Close() error { return sf.pak.Close() }

// PAK exposes the outer archive for inspection.
func (sf *SpriteFile) PAK() *PAK { return sf.pak }

// NumSets returns how many outer packets parsed as sprite sets.
func (sf *SpriteFile) NumSets() int { return sf.loaded }

// Set returns the sprite set recovered from outer packet i, or nil when
// that packet held none (or was beyond the scan limit).
func (sf *SpriteFile) Set(i int) *SpriteSet {
	if i < 0 || i >= len(sf.sets) {
		return nil
	}
	return sf.sets[i]
}

// Frame decodes one shape addressed by (outer set, table, shape) indices,
// consulting the frame LRU when one is installed.
//
// Cached shapes are shared; callers must treat the pixel buffer as
// read-only when caching is enabled.
func (sf *SpriteFile) Frame(set, table, shape int) (*Shape, error) {
	key := frameKey{set, table, shape}
	if sf.frames != nil {
		if s, ok := sf.frames.Get(key); ok {
			return s, nil
		}
	}

	ss := sf.Set(set)
	if ss == nil {
		return nil, fmt.Errorf("sprite set %d not loaded", set)
	}
	if table < 0 || table >= len(ss.Tables) {
		return nil, fmt.Errorf("table %d out of range [0, %d)", table, len(ss.Tables))
	}
	s, err := ss.Tables[table].DecodeShape(shape)
	if err != nil {
		return nil, err
	}
	if sf.frames != nil {
		sf.frames.Add(key, s)
	}
	return s, nil
}
