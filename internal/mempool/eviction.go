package mempool

import (
	"time"

	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Evict removes the lowest fee-rate transactions until the pool is at or
// below its maximum size. It returns the number removed.
func (p *Pool) Evict() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.txs) <= p.maxSize {
		return 0
	}
	entries := p.sortedLocked(func(a, b *entry) bool { return a.feeRate < b.feeRate })

	evicted := 0
	for len(p.txs) > p.maxSize && evicted < len(entries) {
		p.removeLocked(entries[evicted].txHash)
		evicted++
	}
	return evicted
}

// Expire drops transactions that have waited longer than maxAge.
func (p *Pool) Expire(now time.Time, maxAge time.Duration) []types.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()

	var expired []types.Hash
	for h, e := range p.txs {
		if now.Sub(e.added) > maxAge {
			expired = append(expired, h)
		}
	}
	for _, h := range expired {
		p.removeLocked(h)
	}
	return expired
}
