package block

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consensuscore/crypto"
)

func TestGenesisShape(t *testing.T) {
	root := crypto.Sum([]byte("genesis-state"))
	g := NewGenesis(root)

	assert.True(t, g.IsGenesis())
	assert.Equal(t, uint64(0), g.Slot)
	assert.Equal(t, crypto.ZeroHash, g.ParentHash)
	assert.True(t, g.VerifySignature(nil))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var author [32]byte
	copy(author[:], pub)

	b := New(author, 1, crypto.ZeroHash, []byte("payload"), crypto.Sum([]byte("state")))
	b.Sign(priv)

	assert.True(t, b.VerifySignature(pub))

	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	assert.False(t, b.VerifySignature(otherPub))
}

func TestHashIsDeterministicAndFieldSensitive(t *testing.T) {
	var author [32]byte
	author[0] = 1
	parent := crypto.Sum([]byte("parent"))
	state := crypto.Sum([]byte("state"))

	b1 := New(author, 5, parent, []byte("payload"), state)
	b2 := New(author, 5, parent, []byte("payload"), state)
	assert.Equal(t, b1.Hash, b2.Hash)

	b3 := New(author, 6, parent, []byte("payload"), state)
	assert.NotEqual(t, b1.Hash, b3.Hash)

	b4 := New(author, 5, parent, []byte("different"), state)
	assert.NotEqual(t, b1.Hash, b4.Hash)
}
