// Package consensus defines the Vote type: an ed25519-signed assertion
// that one block-slot pair follows from another, the unit the Vote
// Index and Finality Gadget operate on (spec.md §3/§4.2/§4.3).
package consensus

import (
	"crypto/ed25519"
	"encoding/binary"

	"consensuscore/block"
	"consensuscore/crypto"
)

// Vote is author public key, source pair I1, target pair I2, and the
// author's signature over everything else, per spec.md §3.
type Vote struct {
	Author    [32]byte
	Source    block.Pair
	Target    block.Pair
	Signature []byte
}

func (v *Vote) canonicalBody() []byte {
	buf := make([]byte, 0, 32+32+8+32+8)
	buf = append(buf, v.Author[:]...)
	buf = append(buf, v.Source.BlockHash[:]...)
	buf = appendUint64(buf, v.Source.Slot)
	buf = append(buf, v.Target.BlockHash[:]...)
	buf = appendUint64(buf, v.Target.Slot)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, v)
	return append(buf, tmp...)
}

// New builds an unsigned vote from author to source/target pairs.
func New(author [32]byte, source, target block.Pair) *Vote {
	return &Vote{Author: author, Source: source, Target: target}
}

// Sign signs the vote's canonical body with priv.
func (v *Vote) Sign(priv ed25519.PrivateKey) {
	v.Signature = crypto.Sign(priv, v.canonicalBody())
}

// VerifySignature checks v's signature against pub.
func (v *Vote) VerifySignature(pub ed25519.PublicKey) bool {
	return crypto.Verify(pub, v.canonicalBody(), v.Signature)
}

// StructuralCheck validates the invariants spec.md §3 places on every
// vote independent of tree/index state: slot(I2) > slot(I1), and the
// vote's own slot equals its target slot. The descendant-of-source
// check requires the Block Tree and is done by the caller (the Vote
// Index does not import package tree).
func (v *Vote) StructuralCheck() bool {
	return v.Target.Slot > v.Source.Slot
}
