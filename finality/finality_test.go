package finality

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consensuscore/block"
	"consensuscore/consensus"
	"consensuscore/crypto"
)

type chainTree struct {
	blocks map[crypto.Hash]*block.Block
	order  []crypto.Hash // root-to-tip, single linear chain for these tests
}

func (c *chainTree) IsDescendant(a, d crypto.Hash) bool {
	seenA := false
	for _, h := range c.order {
		if h == a {
			seenA = true
		}
		if h == d {
			return seenA
		}
	}
	return false
}

func (c *chainTree) Chain(hash crypto.Hash) []crypto.Hash {
	var out []crypto.Hash
	for _, h := range c.order {
		out = append(out, h)
		if h == hash {
			break
		}
	}
	return out
}

func (c *chainTree) Block(hash crypto.Hash) *block.Block {
	return c.blocks[hash]
}

func (c *chainTree) Finalize(hash crypto.Hash) []crypto.Hash {
	var newly []crypto.Hash
	for _, h := range c.order {
		newly = append(newly, h)
		if h == hash {
			break
		}
	}
	return newly
}

type flatWeightSum struct {
	byPair map[block.Pair]map[block.Pair]*uint256.Int
}

func (f *flatWeightSum) WeightSum(source, target block.Pair) *uint256.Int {
	inner, ok := f.byPair[source]
	if !ok {
		return uint256.NewInt(0)
	}
	w, ok := inner[target]
	if !ok {
		return uint256.NewInt(0)
	}
	return w
}

func (f *flatWeightSum) set(source, target block.Pair, w uint64) {
	if f.byPair[source] == nil {
		f.byPair[source] = make(map[block.Pair]*uint256.Int)
	}
	f.byPair[source][target] = uint256.NewInt(w)
}

type flatReferenceWeight struct{ total uint64 }

func (f flatReferenceWeight) TotalWeightAt(blockHash crypto.Hash) *uint256.Int {
	return uint256.NewInt(f.total)
}

func buildChain(t *testing.T, n int) (*chainTree, []crypto.Hash) {
	genesis := block.NewGenesis(crypto.Sum([]byte("state")))
	tree := &chainTree{blocks: map[crypto.Hash]*block.Block{genesis.Hash: genesis}, order: []crypto.Hash{genesis.Hash}}

	hashes := []crypto.Hash{genesis.Hash}
	parent := genesis.Hash
	var author [32]byte
	for s := 1; s <= n; s++ {
		b := block.New(author, uint64(s), parent, []byte("p"), crypto.ZeroHash)
		tree.blocks[b.Hash] = b
		tree.order = append(tree.order, b.Hash)
		hashes = append(hashes, b.Hash)
		parent = b.Hash
	}
	return tree, hashes
}

func TestGenesisPairIsJustifiedAndFinalized(t *testing.T) {
	tree, hashes := buildChain(t, 2)
	weights := &flatWeightSum{byPair: map[block.Pair]map[block.Pair]*uint256.Int{}}
	g := New(hashes[0], tree, weights, flatReferenceWeight{total: 100})

	genesisPair := block.Pair{BlockHash: hashes[0], Slot: 0}
	assert.True(t, g.IsJustified(genesisPair))
	assert.True(t, g.IsFinalized(genesisPair))
}

func TestHappyPathFinalization(t *testing.T) {
	// P1 leads slot 1 (B1), P2 leads slot 2 (B2); two-thirds vote
	// (g,0)->(B1,1), then two-thirds vote (B1,1)->(B2,2): (B1,1) finalizes.
	tree, hashes := buildChain(t, 2)
	genesis, b1, b2 := hashes[0], hashes[1], hashes[2]

	weights := &flatWeightSum{byPair: map[block.Pair]map[block.Pair]*uint256.Int{}}
	g := New(genesis, tree, weights, flatReferenceWeight{total: 100})

	genesisPair := block.Pair{BlockHash: genesis, Slot: 0}
	b1Pair := block.Pair{BlockHash: b1, Slot: 1}
	b2Pair := block.Pair{BlockHash: b2, Slot: 2}

	weights.set(genesisPair, b1Pair, 80)
	var author [32]byte
	v1 := consensus.New(author, genesisPair, b1Pair)
	newly := g.OnVoteInserted(v1)
	assert.Nil(t, newly)
	assert.True(t, g.IsJustified(b1Pair))

	weights.set(b1Pair, b2Pair, 80)
	v2 := consensus.New(author, b1Pair, b2Pair)
	newly = g.OnVoteInserted(v2)
	require.NotEmpty(t, newly)
	assert.True(t, g.IsJustified(b2Pair))
	assert.True(t, g.IsFinalized(b1Pair))
}

func TestInsufficientWeightDoesNotJustify(t *testing.T) {
	tree, hashes := buildChain(t, 1)
	genesis, b1 := hashes[0], hashes[1]

	weights := &flatWeightSum{byPair: map[block.Pair]map[block.Pair]*uint256.Int{}}
	g := New(genesis, tree, weights, flatReferenceWeight{total: 100})

	genesisPair := block.Pair{BlockHash: genesis, Slot: 0}
	b1Pair := block.Pair{BlockHash: b1, Slot: 1}
	weights.set(genesisPair, b1Pair, 50) // exactly half, not > 2/3

	var author [32]byte
	g.OnVoteInserted(consensus.New(author, genesisPair, b1Pair))
	assert.False(t, g.IsJustified(b1Pair))
}
