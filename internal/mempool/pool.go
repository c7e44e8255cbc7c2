// Package mempool holds the node's unconfirmed transactions.
package mempool

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrConflict      = errors.New("transaction conflicts with existing mempool entry")
	ErrPoolFull      = errors.New("mempool is full")
	ErrValidation    = errors.New("transaction failed validation")
	ErrFeeTooLow     = errors.New("transaction fee below minimum")
)

// DefaultMaxSize is used when New is given a non-positive size.
const DefaultMaxSize = 5000

type entry struct {
	tx      *tx.Transaction
	txHash  types.Hash
	fee     uint64
	size    int
	feeRate float64 // fee per byte
	added   time.Time
}

// Pool holds unconfirmed transactions.
type Pool struct {
	mu      sync.RWMutex
	txs     map[types.Hash]*entry
	spends  map[types.Outpoint]types.Hash // outpoint -> spending tx
	maxSize int
	policy  *Policy
	outputs tx.OutputProvider

	// Token validation, nil when disabled.
	decoder ntp1.Decoder
	tokens  ntp1.InputResolver
}

// New creates a pool that resolves inputs through outputs.
func New(outputs tx.OutputProvider, maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		txs:     make(map[types.Hash]*entry),
		spends:  make(map[types.Outpoint]types.Hash),
		maxSize: maxSize,
		policy:  DefaultPolicy(),
		outputs: outputs,
	}
}

// SetTokenValidator makes Add reject transactions whose NTP1 payload does
// not decode against the current token balances.
func (p *Pool) SetTokenValidator(dec ntp1.Decoder, inputs ntp1.InputResolver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decoder = dec
	p.tokens = inputs
}

// MinFee returns the least fee t must pay to be accepted: the size based
// relay fee, plus the issuance fee for NTP1 issuances.
func MinFee(t *tx.Transaction) uint64 {
	fee := tx.RequiredFee(t, config.MinTxFee)
	if isIssuance(t) {
		fee += config.IssuanceFee
	}
	return fee
}

func isIssuance(t *tx.Transaction) bool {
	for _, i := range t.DataOutputs() {
		payload, err := ntp1.ParsePayload(t.Outputs[i].Script.Data)
		if err == nil && payload.Op == ntp1.OpIssuance {
			return true
		}
	}
	return false
}

// Add validates and adds a transaction. It returns the fee paid.
func (p *Pool) Add(transaction *tx.Transaction) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txHash := transaction.Hash()
	if _, exists := p.txs[txHash]; exists {
		return 0, ErrAlreadyExists
	}

	if err := p.policy.Check(transaction); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for _, in := range transaction.Inputs {
		if conflictHash, exists := p.spends[in.PrevOut]; exists {
			return 0, fmt.Errorf("%w: input %s already spent by %s", ErrConflict, in.PrevOut, conflictHash)
		}
	}

	fee, err := transaction.ValidateWithOutputs(p.outputs)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if p.decoder != nil {
		if _, err := p.decoder.Decode(transaction, p.tokens); err != nil {
			return 0, fmt.Errorf("%w: ntp1: %v", ErrValidation, err)
		}
	}

	if need := MinFee(transaction); fee < need {
		return 0, fmt.Errorf("%w: got %d, need %d", ErrFeeTooLow, fee, need)
	}

	size := transaction.Size()
	var feeRate float64
	if size > 0 {
		feeRate = float64(fee) / float64(size)
	}

	if len(p.txs) >= p.maxSize {
		lowestHash, lowestRate := p.findLowestFeeRate()
		if feeRate <= lowestRate {
			return 0, ErrPoolFull
		}
		p.removeLocked(lowestHash)
	}

	p.txs[txHash] = &entry{
		tx:      transaction,
		txHash:  txHash,
		fee:     fee,
		size:    size,
		feeRate: feeRate,
		added:   time.Now(),
	}
	for _, in := range transaction.Inputs {
		p.spends[in.PrevOut] = txHash
	}
	return fee, nil
}

// Remove drops a transaction by hash.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
}

func (p *Pool) removeLocked(txHash types.Hash) {
	e, exists := p.txs[txHash]
	if !exists {
		return
	}
	for _, in := range e.tx.Inputs {
		delete(p.spends, in.PrevOut)
	}
	delete(p.txs, txHash)
}

// Has checks if a transaction is in the pool.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txHash]
	return exists
}

// Get returns a pooled transaction, or nil.
func (p *Pool) Get(txHash types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// GetFee returns the fee of a pooled transaction (0 if not found).
func (p *Pool) GetFee(txHash types.Hash) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return 0
	}
	return e.fee
}

// SpentBy returns the pooled transaction spending op, if any.
func (p *Pool) SpentBy(op types.Outpoint) (types.Hash, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.spends[op]
	return h, ok
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Hashes returns the pooled transaction hashes, oldest first.
func (p *Pool) Hashes() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := p.sortedLocked(func(a, b *entry) bool { return a.added.Before(b.added) })
	hashes := make([]types.Hash, len(entries))
	for i, e := range entries {
		hashes[i] = e.txHash
	}
	return hashes
}

// Info summarizes the pool.
type Info struct {
	Count   int    `json:"count"`
	Bytes   int    `json:"bytes"`
	Fees    uint64 `json:"fees"`
	MaxSize int    `json:"max_size"`
}

// Info returns pool totals.
func (p *Pool) Info() Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info := Info{Count: len(p.txs), MaxSize: p.maxSize}
	for _, e := range p.txs {
		info.Bytes += e.size
		info.Fees += e.fee
	}
	return info
}

// findLowestFeeRate must be called with p.mu held.
func (p *Pool) findLowestFeeRate() (types.Hash, float64) {
	var lowestHash types.Hash
	lowestRate := math.MaxFloat64
	for h, e := range p.txs {
		if e.feeRate < lowestRate {
			lowestRate = e.feeRate
			lowestHash = h
		}
	}
	return lowestHash, lowestRate
}

func (p *Pool) sortedLocked(less func(a, b *entry) bool) []*entry {
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return entries
}
