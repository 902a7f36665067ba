// Package crypto provides the signing, hashing, and key-derivation
// primitives the wire protocol is built on: ed25519 signatures, BLAKE3
// canonical-body hashes, and BLAKE2b seed-based key derivation.
package crypto

import (
	"crypto/ed25519"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest, used for block hashes, vote hashes,
// and Merkle nodes.
type Hash [32]byte

// ZeroHash is the all-zero 32-byte value (not the BLAKE3 digest of
// empty input); genesis's parent hash.
var ZeroHash Hash

// Sum returns the BLAKE3 digest of data.
func Sum(data []byte) Hash {
	var h Hash
	sum := blake3.Sum256(data)
	copy(h[:], sum[:])
	return h
}

// SumMany hashes the concatenation of all chunks without an intermediate
// allocation, matching the "canonical-serialized message body" framing
// used for signing and hashing wire messages.
func SumMany(chunks ...[]byte) Hash {
	hasher := blake3.New()
	for _, c := range chunks {
		hasher.Write(c)
	}
	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// DeriveEd25519 derives an ed25519 key pair from a 32-byte seed and an
// account index, mirroring the Nano-style derivation the protocol this
// system is modeled on uses: a BLAKE2b-256 hash of seed‖index produces a
// 32-byte private-key seed. The expansion of that seed to signing/public
// keys is crypto/ed25519's standard one, which hashes with SHA-512;
// BLAKE2b-512 plays no part in it.
func DeriveEd25519(seed [32]byte, index uint32) (ed25519.PublicKey, ed25519.PrivateKey) {
	buf := make([]byte, 36)
	copy(buf, seed[:])
	binary.BigEndian.PutUint32(buf[32:], index)

	digest := blake2b256(buf)
	priv := ed25519.NewKeyFromSeed(digest[:])
	pub := priv.Public().(ed25519.PublicKey)
	return pub, priv
}

func blake2b256(data []byte) [32]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("crypto: blake2b-256 init: " + err.Error())
	}
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b512 returns the BLAKE2b-512 digest of data. No key derivation
// in this package calls it: DeriveEd25519 relies on crypto/ed25519's
// own SHA-512 seed expansion.
func Blake2b512(data []byte) [64]byte {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic("crypto: blake2b-512 init: " + err.Error())
	}
	h.Write(data)
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sign signs msg with priv and returns the 64-byte ed25519 signature.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify checks sig against msg under pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
