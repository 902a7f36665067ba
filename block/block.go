// Package block defines the Block type and block-slot Pair, the units
// the Block Tree stores and the Finality Gadget votes over.
package block

import (
	"crypto/ed25519"
	"encoding/binary"

	"consensuscore/crypto"
)

// Block is the wire-level block shape from spec.md §3/§6: an author,
// slot, parent hash, opaque payload, state-root commitment, and the
// author's signature over everything but the signature itself.
type Block struct {
	Author    [32]byte // zero for genesis
	Slot      uint64
	ParentHash crypto.Hash
	Payload   []byte // opaque to this core: transactions/opens/votes
	StateRoot crypto.Hash
	Signature []byte // 64-byte ed25519 signature, empty until Sign

	// Hash is the BLAKE3 digest of the canonical body (every field
	// above except Signature), computed once and cached.
	Hash crypto.Hash
}

// IsGenesis reports whether b is the sole genesis block: undefined
// author, slot 0.
func (b *Block) IsGenesis() bool {
	return b.Slot == 0 && b.Author == [32]byte{}
}

// canonicalBody serializes every signed field in declaration order, for
// hashing and signing, per spec.md §6 ("All signatures are ed25519 over
// the concatenation of the remaining fields in declaration order").
func (b *Block) canonicalBody() []byte {
	buf := make([]byte, 0, 32+8+32+4+len(b.Payload)+32)
	buf = append(buf, b.Author[:]...)

	slotBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(slotBuf, b.Slot)
	buf = append(buf, slotBuf...)

	buf = append(buf, b.ParentHash[:]...)

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(b.Payload)))
	buf = append(buf, lenBuf...)
	buf = append(buf, b.Payload...)

	buf = append(buf, b.StateRoot[:]...)
	return buf
}

// New assembles an unsigned block and computes its hash.
func New(author [32]byte, slot uint64, parentHash crypto.Hash, payload []byte, stateRoot crypto.Hash) *Block {
	b := &Block{
		Author:     author,
		Slot:       slot,
		ParentHash: parentHash,
		Payload:    payload,
		StateRoot:  stateRoot,
	}
	b.Hash = crypto.Sum(b.canonicalBody())
	return b
}

// NewGenesis builds the sole genesis block: slot 0, undefined author,
// zero parent hash, and the genesis state root.
func NewGenesis(stateRoot crypto.Hash) *Block {
	return New([32]byte{}, 0, crypto.ZeroHash, nil, stateRoot)
}

// Sign signs the block's canonical body with priv and stores the
// signature.
func (b *Block) Sign(priv ed25519.PrivateKey) {
	b.Signature = crypto.Sign(priv, b.canonicalBody())
}

// VerifySignature checks b's signature against pub. Genesis is exempt
// (it carries no signature — its author is undefined).
func (b *Block) VerifySignature(pub ed25519.PublicKey) bool {
	if b.IsGenesis() {
		return true
	}
	return crypto.Verify(pub, b.canonicalBody(), b.Signature)
}

// Pair is a block-slot pair I = (B, s) with the invariant s >= slot(B),
// the unit the Finality Gadget tracks justification/finalization over.
type Pair struct {
	BlockHash crypto.Hash
	Slot      uint64
}
