package connector

import (
	"fmt"
	"hash/fnv"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

// DedupCache drops ticks already seen recently. Entries are keyed by a
// content hash of (exchange, symbol, price, volume, second-truncated
// timestamp); when the cache is full roughly the oldest 10% are evicted.
// Owned by the connector's read loop, so no locking.
type DedupCache struct {
	capacity int
	seen     map[uint64]struct{}
	order    []uint64 // insertion order, oldest first
}

func NewDedupCache(capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &DedupCache{
		capacity: capacity,
		seen:     make(map[uint64]struct{}, capacity),
	}
}

// Seen reports whether the tick is a duplicate. New ticks are recorded.
func (d *DedupCache) Seen(t models.Tick) bool {
	h := hashTick(t)
	if _, ok := d.seen[h]; ok {
		return true
	}

	if len(d.seen) >= d.capacity {
		d.evict()
	}
	d.seen[h] = struct{}{}
	d.order = append(d.order, h)
	return false
}

// Len reports the number of cached entries.
func (d *DedupCache) Len() int { return len(d.seen) }

func (d *DedupCache) evict() {
	n := d.capacity / 10
	if n < 1 {
		n = 1
	}
	if n > len(d.order) {
		n = len(d.order)
	}
	for _, h := range d.order[:n] {
		delete(d.seen, h)
	}
	d.order = d.order[n:]
}

func hashTick(t models.Tick) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%v|%v|%d", t.Exchange, t.Symbol, t.Price, t.Volume, int64(t.Timestamp))
	return h.Sum64()
}
