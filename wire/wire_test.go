package wire

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consensuscore/block"
	"consensuscore/consensus"
	"consensuscore/crypto"
)

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var author [32]byte
	copy(author[:], pub)

	b := block.New(author, 7, crypto.Sum([]byte("parent")), []byte("hello payload"), crypto.Sum([]byte("state")))
	b.Sign(priv)

	encoded := EncodeBlock(b)
	decoded, err := DecodeBlock(encoded)
	require.NoError(t, err)

	assert.Equal(t, b.Author, decoded.Author)
	assert.Equal(t, b.Slot, decoded.Slot)
	assert.Equal(t, b.ParentHash, decoded.ParentHash)
	assert.Equal(t, b.Payload, decoded.Payload)
	assert.Equal(t, b.StateRoot, decoded.StateRoot)
	assert.Equal(t, b.Signature, decoded.Signature)
	assert.Equal(t, b.Hash, decoded.Hash)
	assert.True(t, decoded.VerifySignature(pub))
}

func TestVoteEncodeDecodeRoundTrip(t *testing.T) {
	var author [32]byte
	author[0] = 9

	source := block.Pair{BlockHash: crypto.Sum([]byte("g")), Slot: 0}
	target := block.Pair{BlockHash: crypto.Sum([]byte("b1")), Slot: 1}
	v := consensus.New(author, source, target)
	v.Signature = make([]byte, 64)
	for i := range v.Signature {
		v.Signature[i] = byte(i)
	}

	encoded := EncodeVote(v)
	decoded, err := DecodeVote(encoded)
	require.NoError(t, err)

	assert.Equal(t, v.Author, decoded.Author)
	assert.Equal(t, v.Source, decoded.Source)
	assert.Equal(t, v.Target, decoded.Target)
	assert.Equal(t, v.Signature, decoded.Signature)
}

func TestShredNoteEncodeDecodeRoundTrip(t *testing.T) {
	s := &ShredNote{
		BlockHash:   crypto.Sum([]byte("b")),
		ShredIndex:  2,
		TotalShreds: 10,
		Data:        []byte("chunk"),
	}
	decoded, err := DecodeShredNote(EncodeShredNote(s))
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestDecodeBlockRejectsTruncated(t *testing.T) {
	_, err := DecodeBlock([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeVoteRejectsWrongSize(t *testing.T) {
	_, err := DecodeVote(make([]byte, 10))
	assert.Error(t, err)
}
