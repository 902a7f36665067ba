package voteindex

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consensuscore/accounts"
	"consensuscore/block"
	"consensuscore/consensus"
	"consensuscore/crypto"
)

type flatWeights struct{ w uint64 }

func (f flatWeights) WeightAt(slot uint64, rep accounts.PubKey) *uint256.Int {
	return uint256.NewInt(f.w)
}

func pair(hashSeed string, slot uint64) block.Pair {
	return block.Pair{BlockHash: crypto.Sum([]byte(hashSeed)), Slot: slot}
}

func TestWeightSumAccumulatesDistinctAuthors(t *testing.T) {
	idx := New(flatWeights{w: 10})

	source := pair("g", 0)
	target := pair("b1", 1)

	var a1, a2 [32]byte
	a1[0], a2[0] = 1, 2

	idx.Insert(consensus.New(a1, source, target))
	idx.Insert(consensus.New(a2, source, target))

	assert.Equal(t, uint256.NewInt(20), idx.WeightSum(source, target))
}

func TestInsertIsIdempotentForExactDuplicate(t *testing.T) {
	idx := New(flatWeights{w: 10})
	source := pair("g", 0)
	target := pair("b1", 1)

	var a1 [32]byte
	a1[0] = 1

	idx.Insert(consensus.New(a1, source, target))
	idx.Insert(consensus.New(a1, source, target))

	assert.Equal(t, uint256.NewInt(10), idx.WeightSum(source, target))
}

func TestS2Detection(t *testing.T) {
	idx := New(flatWeights{w: 10})
	var author [32]byte
	author[0] = 1

	source := pair("g", 0)
	target1 := pair("b1", 1)
	target2 := pair("b1-prime", 1)

	idx.Insert(consensus.New(author, source, target1))
	idx.Insert(consensus.New(author, source, target2))

	s2, _ := idx.SlashableEvidence(author)
	require.Len(t, s2, 1)
	assert.Equal(t, author, s2[0].Author)
}

func TestS3DetectionOverride(t *testing.T) {
	idx := New(flatWeights{w: 10})
	var author [32]byte
	author[0] = 1

	outer := consensus.New(author, pair("g", 1), pair("b4", 10))
	idx.Insert(outer)

	inner := consensus.New(author, pair("b2", 3), pair("b3", 5))
	idx.Insert(inner)

	_, s3 := idx.SlashableEvidence(author)
	require.Len(t, s3, 1)
	assert.Equal(t, outer, s3[0].Outer)
	assert.Equal(t, inner, s3[0].Inner)
}

func TestS3NoFalsePositiveOnNonOverlapping(t *testing.T) {
	idx := New(flatWeights{w: 10})
	var author [32]byte
	author[0] = 1

	idx.Insert(consensus.New(author, pair("g", 0), pair("b1", 1)))
	idx.Insert(consensus.New(author, pair("b1", 1), pair("b2", 2)))

	_, s3 := idx.SlashableEvidence(author)
	assert.Empty(t, s3)
}

func TestVotersWithTargetInRange(t *testing.T) {
	idx := New(flatWeights{w: 10})
	var a1, a2, a3 [32]byte
	a1[0], a2[0], a3[0] = 1, 2, 3

	idx.Insert(consensus.New(a1, pair("g", 0), pair("b1", 5)))
	idx.Insert(consensus.New(a2, pair("g", 0), pair("b2", 15)))
	idx.Insert(consensus.New(a3, pair("g", 0), pair("b3", 9)))

	voters := idx.VotersWithTargetInRange(0, 9)
	assert.ElementsMatch(t, []accounts.PubKey{accounts.PubKey(a1), accounts.PubKey(a3)}, voters)
}
