package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// ErrNoWallet is returned when the keystore file does not exist.
var ErrNoWallet = errors.New("wallet not found")

const keystoreVersion = 1

// keystoreFile is the on-disk JSON format.
type keystoreFile struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Seed      *sealedBox     `json:"seed"`
	Addresses []AddressEntry `json:"addresses"`
	// Next unused index per chain.
	NextExternal uint32 `json:"next_external"`
	NextInternal uint32 `json:"next_internal"`
}

// AddressEntry records a derived address. Addresses are public and
// readable while the wallet is locked.
type AddressEntry struct {
	Chain   uint32        `json:"chain"`
	Index   uint32        `json:"index"`
	Address types.Address `json:"address"`
	Label   string        `json:"label,omitempty"`
}

// IsChange reports whether the entry is on the internal chain.
func (e AddressEntry) IsChange() bool {
	return e.Chain == ChainInternal
}

// Keystore is the wallet file. Every mutation rewrites it atomically.
type Keystore struct {
	mu   sync.Mutex
	path string
}

// NewKeystore opens the keystore at path, creating the parent directory.
// The file itself is written by Create.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create wallet dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Path returns the keystore file path.
func (ks *Keystore) Path() string {
	return ks.path
}

// Exists reports whether the wallet file has been created.
func (ks *Keystore) Exists() bool {
	_, err := os.Stat(ks.path)
	return err == nil
}

// Create writes a new wallet holding seed sealed under passphrase.
func (ks *Keystore) Create(seed, passphrase []byte, params EncryptionParams) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.Exists() {
		return fmt.Errorf("wallet %s already exists", ks.path)
	}
	box, err := seal(seed, passphrase, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	return ks.write(&keystoreFile{
		Version:   keystoreVersion,
		CreatedAt: time.Now().UTC(),
		Seed:      box,
		Addresses: []AddressEntry{},
	})
}

// Unseal decrypts and returns the seed.
func (ks *Keystore) Unseal(passphrase []byte) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	kf, err := ks.read()
	if err != nil {
		return nil, err
	}
	return kf.Seed.open(passphrase)
}

// Addresses returns every derived address in derivation order.
func (ks *Keystore) Addresses() ([]AddressEntry, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	kf, err := ks.read()
	if err != nil {
		return nil, err
	}
	return kf.Addresses, nil
}

// NextIndex returns the next unused index on chain.
func (ks *Keystore) NextIndex(chain uint32) (uint32, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	kf, err := ks.read()
	if err != nil {
		return 0, err
	}
	if chain == ChainInternal {
		return kf.NextInternal, nil
	}
	return kf.NextExternal, nil
}

// AddAddress records entry and advances its chain counter past it.
// Re-adding an identical entry is a no-op.
func (ks *Keystore) AddAddress(entry AddressEntry) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	kf, err := ks.read()
	if err != nil {
		return err
	}
	for _, existing := range kf.Addresses {
		if existing.Chain == entry.Chain && existing.Index == entry.Index {
			if existing.Address == entry.Address {
				return nil
			}
			return fmt.Errorf("address path %d/%d already used", entry.Chain, entry.Index)
		}
	}
	kf.Addresses = append(kf.Addresses, entry)

	next := &kf.NextExternal
	if entry.Chain == ChainInternal {
		next = &kf.NextInternal
	}
	if entry.Index >= *next {
		*next = entry.Index + 1
	}
	return ks.write(kf)
}

func (ks *Keystore) write(kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := ks.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	if err := os.Rename(tmp, ks.path); err != nil {
		return fmt.Errorf("replace wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) read() (*keystoreFile, error) {
	data, err := os.ReadFile(ks.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoWallet, ks.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	if kf.Seed == nil {
		return nil, fmt.Errorf("wallet has no seed")
	}
	return &kf, nil
}
