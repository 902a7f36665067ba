package consensus

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consensuscore/block"
	"consensuscore/crypto"
)

func TestVoteSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var author [32]byte
	copy(author[:], pub)

	source := block.Pair{BlockHash: crypto.Sum([]byte("g")), Slot: 0}
	target := block.Pair{BlockHash: crypto.Sum([]byte("b1")), Slot: 1}

	v := New(author, source, target)
	v.Sign(priv)

	assert.True(t, v.VerifySignature(pub))

	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	assert.False(t, v.VerifySignature(otherPub))
}

func TestVoteStructuralCheck(t *testing.T) {
	valid := New([32]byte{}, block.Pair{Slot: 0}, block.Pair{Slot: 1})
	assert.True(t, valid.StructuralCheck())

	invalid := New([32]byte{}, block.Pair{Slot: 2}, block.Pair{Slot: 1})
	assert.False(t, invalid.StructuralCheck())

	equal := New([32]byte{}, block.Pair{Slot: 1}, block.Pair{Slot: 1})
	assert.False(t, equal.StructuralCheck())
}
