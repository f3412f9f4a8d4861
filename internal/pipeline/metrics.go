package pipeline

import (
	"sync/atomic"

	"firestige.xyz/ipsniff/internal/core"
)

// Counters holds the per-run packet counters. Counters are monotonic and
// safe for concurrent reads while the capture loop writes them.
type Counters struct {
	TCP   atomic.Uint64
	UDP   atomic.Uint64
	ICMP  atomic.Uint64
	IGMP  atomic.Uint64
	Other atomic.Uint64
	Total atomic.Uint64

	Malformed atomic.Uint64 // Subset of Other whose header failed to decode
	Reported  atomic.Uint64 // Reports accepted by the sink
	Dropped   atomic.Uint64 // Reports lost to sink failures
}

// Record increments the counter for c and Total.
func (c *Counters) Record(cat core.Category) {
	switch cat {
	case core.CategoryTCP:
		c.TCP.Add(1)
	case core.CategoryUDP:
		c.UDP.Add(1)
	case core.CategoryICMP:
		c.ICMP.Add(1)
	case core.CategoryIGMP:
		c.IGMP.Add(1)
	default:
		c.Other.Add(1)
	}
	c.Total.Add(1)
}

// Snapshot returns a point-in-time copy of the counters.
func (c *Counters) Snapshot() Stats {
	return Stats{
		TCP:       c.TCP.Load(),
		UDP:       c.UDP.Load(),
		ICMP:      c.ICMP.Load(),
		IGMP:      c.IGMP.Load(),
		Other:     c.Other.Load(),
		Total:     c.Total.Load(),
		Malformed: c.Malformed.Load(),
		Reported:  c.Reported.Load(),
		Dropped:   c.Dropped.Load(),
	}
}

// Stats represents capture statistics.
type Stats struct {
	TCP       uint64
	UDP       uint64
	ICMP      uint64
	IGMP      uint64
	Other     uint64
	Total     uint64
	Malformed uint64
	Reported  uint64
	Dropped   uint64
}

// Count returns the counter for one category.
func (s Stats) Count(cat core.Category) uint64 {
	switch cat {
	case core.CategoryTCP:
		return s.TCP
	case core.CategoryUDP:
		return s.UDP
	case core.CategoryICMP:
		return s.ICMP
	case core.CategoryIGMP:
		return s.IGMP
	default:
		return s.Other
	}
}
