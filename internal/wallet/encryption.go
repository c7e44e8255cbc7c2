package wallet

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the Argon2id salt length.
const SaltSize = 32

// ErrWrongPassphrase is returned when a sealed seed fails authentication.
var ErrWrongPassphrase = errors.New("the wallet passphrase entered was incorrect")

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 `json:"memory"` // KiB
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
}

// DefaultParams returns the Argon2id parameters used for new wallets.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

// sealedBox is an XChaCha20-Poly1305 ciphertext keyed by Argon2id. The KDF
// parameters travel with it so they can change between wallets.
type sealedBox struct {
	KDF        string           `json:"kdf"`
	Params     EncryptionParams `json:"params"`
	Salt       []byte           `json:"salt"`
	Nonce      []byte           `json:"nonce"`
	Ciphertext []byte           `json:"ciphertext"`
}

const kdfArgon2id = "argon2id"

func deriveKey(passphrase, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(passphrase, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// seal encrypts data under passphrase.
func seal(data, passphrase []byte, params EncryptionParams) (*sealedBox, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt, params)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return &sealedBox{
		KDF:        kdfArgon2id,
		Params:     params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, data, nil),
	}, nil
}

// open decrypts the box. A wrong passphrase yields ErrWrongPassphrase.
func (b *sealedBox) open(passphrase []byte) ([]byte, error) {
	if b.KDF != kdfArgon2id {
		return nil, fmt.Errorf("unsupported kdf %q", b.KDF)
	}
	if len(b.Salt) != SaltSize || len(b.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("malformed sealed seed")
	}
	if len(b.Ciphertext) < chacha20poly1305.Overhead {
		return nil, fmt.Errorf("sealed seed too short: %d bytes", len(b.Ciphertext))
	}

	key := deriveKey(passphrase, b.Salt, b.Params)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, b.Nonce, b.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}
