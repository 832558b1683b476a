package mcg

import (
	"fmt"

	arc "github.com/hashicorp/golang-lru/arc/v2"
)

// pakConfig carries open-time options for a PAK handle.
type pakConfig struct {
	cacheEntries int
}

// PAKOption configures OpenPAK and OpenPAKBytes.
type PAKOption func(*pakConfig)

// WithPacketCache installs an ARC cache of up to entries decoded packet
// bodies in front of ReadPacket.
//
// The core contract is cache-free: every read decodes from scratch. The
// cache is an explicit opt-in for consumers that revisit the same packets
// in a hot loop, such as sprite-set scanning. Cached slices are shared;
// callers that mutate a packet's bytes must not enable this.
func WithPacketCache(entries int) PAKOption {
	return func(c *pakConfig) { c.cacheEntries = entries }
}

// packetCache wraps an adaptive replacement cache keyed by packet index.
// ARC keeps both recency and frequency queues, which fits the nested
// reader's access pattern: a few directory-like packets are hit constantly
// while frame packets stream through once.
type packetCache struct {
	c *arc.ARCCache[int, []byte]
}

func newPacketCache(entries int) (*packetCache, error) {
	c, err := arc.NewARC[int, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("packet cache: %w", err)
	}
	return &packetCache{c: c}, nil
}

func (pc *packetCache) get(i int) ([]byte, bool) { return pc.c.Get(i) }

func (pc *packetCache) add(i int, data []byte) { pc.c.Add(i, data) }
