package ntp1

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/HUSKI3/Neblio-Node/internal/log"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// DecodeCache keeps recent decode results. An entry is keyed by txid and
// a digest of the token balances its inputs resolved to, so a change in
// what an input holds never serves an outdated decode.
type DecodeCache struct {
	cache *bigcache.BigCache
}

type cacheEntry struct {
	Decoded  *Decoded `json:"decoded"`
	Amount   string   `json:"amount,omitempty"`
	Metadata []byte   `json:"metadata,omitempty"`
}

// NewDecodeCache creates a cache whose entries expire after ttl.
func NewDecodeCache(ctx context.Context, ttl time.Duration) (*DecodeCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Verbose = false
	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DecodeCache{cache: c}, nil
}

func cacheKey(txid, inputs types.Hash) string {
	return txid.String() + "/" + inputs.String()
}

// Get returns the cached decode of txid made from inputs.
func (c *DecodeCache) Get(txid, inputs types.Hash) (*Decoded, bool) {
	raw, err := c.cache.Get(cacheKey(txid, inputs))
	if err != nil {
		return nil, false
	}
	var e cacheEntry
	if err := json.Unmarshal(raw, &e); err != nil || e.Decoded == nil {
		return nil, false
	}
	d := e.Decoded
	if e.Amount != "" {
		d.IssuedAmount, _ = new(big.Int).SetString(e.Amount, 10)
	}
	d.Metadata = e.Metadata
	return d, true
}

// Put stores d as the decode made from inputs. Failures only cost a
// future re-decode.
func (c *DecodeCache) Put(inputs types.Hash, d *Decoded) {
	e := cacheEntry{Decoded: d, Metadata: d.Metadata}
	if d.IssuedAmount != nil {
		e.Amount = d.IssuedAmount.String()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.cache.Set(cacheKey(d.TxID, inputs), raw); err != nil {
		log.NTP1.Debug().Err(err).Str("txid", d.TxID.String()).Msg("Decode cache set failed")
	}
}

// Len returns the number of cached entries.
func (c *DecodeCache) Len() int {
	return c.cache.Len()
}

// Close releases the cache.
func (c *DecodeCache) Close() error {
	return c.cache.Close()
}
