// Package crypto holds the hashing and signing primitives used by the node.
package crypto

import (
	"github.com/HUSKI3/Neblio-Node/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes BLAKE3-256 of data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// TaggedHash hashes tag followed by each part. Different tags never collide
// for the same parts.
func TaggedHash(tag string, parts ...[]byte) types.Hash {
	h := blake3.New()
	tagSum := blake3.Sum256([]byte(tag))
	h.Write(tagSum[:])
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives the address of a compressed public key:
// the first 20 bytes of BLAKE3(pubkey).
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
