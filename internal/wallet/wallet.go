package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/HUSKI3/Neblio-Node/internal/cache"
	"github.com/HUSKI3/Neblio-Node/internal/log"
	"github.com/HUSKI3/Neblio-Node/internal/mempool"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/internal/utxo"
	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Lock state errors.
var (
	ErrLocked      = errors.New("please enter the wallet passphrase first")
	ErrStakingOnly = errors.New("wallet is unlocked for staking only")
)

// Broadcaster relays a committed transaction to peers.
type Broadcaster interface {
	Broadcast(ctx context.Context, t *tx.Transaction) error
}

// Deps are the stores and services a Wallet works on.
type Deps struct {
	Keystore *Keystore
	// DB holds the wallet's transaction records.
	DB          storage.DB
	UTXOs       *utxo.Store
	Tokens      *ntp1.Store
	Decoder     ntp1.Decoder
	Pool        *mempool.Pool
	Broadcaster Broadcaster // optional
}

// Wallet is the node's single HD wallet.
type Wallet struct {
	mu sync.RWMutex

	ks      *Keystore
	txs     *storage.PrefixDB
	utxos   *utxo.Store
	tokens  *ntp1.Store
	decoder ntp1.Decoder
	pool    *mempool.Pool

	bmu         sync.RWMutex
	broadcaster Broadcaster

	addrs map[types.Address]AddressEntry

	// Set while unlocked.
	master      *HDKey
	keys        map[types.Address]*crypto.PrivateKey
	stakingOnly bool

	// refreshMu serializes RefreshBalances from snapshot to Replace.
	refreshMu sync.Mutex
	balances  *cache.ConcurrentCache[string, Balance]
	logger    zerolog.Logger
}

// New opens the wallet described by deps. The wallet starts locked.
func New(deps Deps) (*Wallet, error) {
	if deps.Keystore == nil || deps.DB == nil || deps.UTXOs == nil || deps.Tokens == nil || deps.Decoder == nil || deps.Pool == nil {
		return nil, fmt.Errorf("wallet: missing dependency")
	}
	entries, err := deps.Keystore.Addresses()
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		ks:          deps.Keystore,
		txs:         storage.NewPrefixDB(deps.DB, []byte("w/")),
		utxos:       deps.UTXOs,
		tokens:      deps.Tokens,
		decoder:     deps.Decoder,
		pool:        deps.Pool,
		broadcaster: deps.Broadcaster,
		addrs:       make(map[types.Address]AddressEntry, len(entries)),
		balances:    cache.New[string, Balance](cache.WithClone[Balance](Balance.clone)),
		logger:      log.Wallet,
	}
	for _, e := range entries {
		w.addrs[e.Address] = e
	}
	if err := w.RefreshBalances(context.Background()); err != nil {
		return nil, err
	}
	return w, nil
}

// SetBroadcaster attaches the transport used by CommitTransaction.
func (w *Wallet) SetBroadcaster(b Broadcaster) {
	w.bmu.Lock()
	defer w.bmu.Unlock()
	w.broadcaster = b
}

// Init creates a wallet file from a mnemonic and records its first
// receive address.
func Init(ks *Keystore, mnemonic string, passphrase []byte, params EncryptionParams) (types.Address, error) {
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return types.Address{}, err
	}
	defer wipe(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return types.Address{}, err
	}
	key, err := master.DeriveAddressKey(ChainExternal, 0)
	if err != nil {
		return types.Address{}, err
	}
	if err := ks.Create(seed, passphrase, params); err != nil {
		return types.Address{}, err
	}
	addr := key.Address()
	if err := ks.AddAddress(AddressEntry{Chain: ChainExternal, Index: 0, Address: addr, Label: "default"}); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}

// Unlock decrypts the seed and derives the keys of every known address.
// With stakingOnly the wallet refuses to spend.
func (w *Wallet) Unlock(passphrase []byte, stakingOnly bool) error {
	seed, err := w.ks.Unseal(passphrase)
	if err != nil {
		return err
	}
	defer wipe(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	keys := make(map[types.Address]*crypto.PrivateKey, len(w.addrs))
	for addr, e := range w.addrs {
		hd, err := master.DeriveAddressKey(e.Chain, e.Index)
		if err != nil {
			return err
		}
		if hd.Address() != addr {
			return fmt.Errorf("keystore address %s does not match derivation %d/%d", addr, e.Chain, e.Index)
		}
		priv, err := hd.PrivateKey()
		if err != nil {
			return err
		}
		keys[addr] = priv
	}

	w.lockLocked()
	w.master = master
	w.keys = keys
	w.stakingOnly = stakingOnly
	w.logger.Info().Bool("staking_only", stakingOnly).Int("keys", len(keys)).Msg("Wallet unlocked")
	return nil
}

// Lock forgets every private key.
func (w *Wallet) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lockLocked()
}

func (w *Wallet) lockLocked() {
	for _, k := range w.keys {
		k.Zero()
	}
	w.keys = nil
	w.master = nil
	w.stakingOnly = false
}

// IsLocked reports whether the wallet has no keys loaded.
func (w *Wallet) IsLocked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.master == nil
}

// UnlockedForStakingOnly reports whether spending is disabled despite
// the wallet being unlocked.
func (w *Wallet) UnlockedForStakingOnly() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.master != nil && w.stakingOnly
}

// canSpendLocked must be called with w.mu held.
func (w *Wallet) canSpendLocked() error {
	if w.master == nil {
		return ErrLocked
	}
	if w.stakingOnly {
		return ErrStakingOnly
	}
	return nil
}

// NewAddress derives and records the next receive address.
func (w *Wallet) NewAddress(label string) (types.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.master == nil {
		return types.Address{}, ErrLocked
	}
	entry, key, err := w.deriveNextLocked(ChainExternal)
	if err != nil {
		return types.Address{}, err
	}
	entry.Label = label
	if err := w.rememberLocked(entry, key); err != nil {
		return types.Address{}, err
	}
	w.logger.Debug().Str("address", entry.Address.String()).Uint32("index", entry.Index).Msg("New receive address")
	return entry.Address, nil
}

// deriveNextLocked derives the next unused address on chain without
// recording it.
func (w *Wallet) deriveNextLocked(chain uint32) (AddressEntry, *crypto.PrivateKey, error) {
	index, err := w.ks.NextIndex(chain)
	if err != nil {
		return AddressEntry{}, nil, err
	}
	hd, err := w.master.DeriveAddressKey(chain, index)
	if err != nil {
		return AddressEntry{}, nil, err
	}
	priv, err := hd.PrivateKey()
	if err != nil {
		return AddressEntry{}, nil, err
	}
	return AddressEntry{Chain: chain, Index: index, Address: hd.Address()}, priv, nil
}

func (w *Wallet) rememberLocked(entry AddressEntry, key *crypto.PrivateKey) error {
	if err := w.ks.AddAddress(entry); err != nil {
		return err
	}
	w.addrs[entry.Address] = entry
	if w.keys != nil {
		w.keys[entry.Address] = key
	}
	return nil
}

// Addresses lists the wallet's addresses, receive chain first.
func (w *Wallet) Addresses() []AddressEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]AddressEntry, 0, len(w.addrs))
	for _, e := range w.addrs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chain != out[j].Chain {
			return out[i].Chain < out[j].Chain
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Owns reports whether addr belongs to the wallet.
func (w *Wallet) Owns(addr types.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.addrs[addr]
	return ok
}

func (w *Wallet) ownsLocked(addr types.Address) bool {
	_, ok := w.addrs[addr]
	return ok
}
