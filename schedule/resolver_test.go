package schedule

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consensuscore/accounts"
	"consensuscore/block"
	"consensuscore/crypto"
)

type fakeTree struct {
	blocks map[crypto.Hash]*block.Block
	ebbs   map[uint64]crypto.Hash // epoch -> ebb hash, single fork
}

func (f *fakeTree) EBBOfEpoch(epoch, epochLength uint64, tip crypto.Hash) (crypto.Hash, bool) {
	h, ok := f.ebbs[epoch]
	return h, ok
}

func (f *fakeTree) Block(hash crypto.Hash) *block.Block {
	return f.blocks[hash]
}

type fakeParticipation struct {
	voters []accounts.PubKey
}

func (f *fakeParticipation) VotersInEpoch(epoch uint64) []accounts.PubKey {
	return f.voters
}

type fakeSnapshots struct {
	snap *accounts.Snapshot
}

func (f *fakeSnapshots) SnapshotAt(root crypto.Hash) *accounts.Snapshot {
	return f.snap
}

func buildFixture(t *testing.T, epochLength uint64) (*Resolver, crypto.Hash) {
	genesis := block.NewGenesis(crypto.Sum([]byte("genesis-state")))

	ebb0 := block.New([32]byte{}, epochLength, genesis.Hash, nil, crypto.ZeroHash) // first block of epoch 1
	tip := block.New([32]byte{}, epochLength*2, ebb0.Hash, nil, crypto.ZeroHash)   // first block of epoch 2

	tree := &fakeTree{
		blocks: map[crypto.Hash]*block.Block{
			genesis.Hash: genesis,
			ebb0.Hash:    ebb0,
			tip.Hash:     tip,
		},
		ebbs: map[uint64]crypto.Hash{
			0: genesis.Hash,
			1: ebb0.Hash,
		},
	}

	var rep1, rep2 accounts.PubKey
	rep1[0], rep2[0] = 1, 2
	snap := accounts.NewSnapshot([]*accounts.Account{
		{Index: 0, PubKey: rep1, Balance: uint256.NewInt(100), Representative: rep1},
		{Index: 1, PubKey: rep2, Balance: uint256.NewInt(50), Representative: rep2},
	})

	participation := &fakeParticipation{voters: []accounts.PubKey{rep1, rep2}}
	snapshots := &fakeSnapshots{snap: snap}

	r := NewResolver(epochLength, accounts.PubKey{}, tree, participation, snapshots)
	return r, tip.Hash
}

func TestResolverGenesisEpochUsesGenesisLeader(t *testing.T) {
	r, tip := buildFixture(t, 10)
	leader, pending := r.LeaderFor(3, tip)
	assert.False(t, pending)
	assert.Equal(t, accounts.PubKey{}, accounts.PubKey(leader))
}

func TestResolverResolvesLaterEpochFromReferenceSnapshot(t *testing.T) {
	r, tip := buildFixture(t, 10)
	leader, pending := r.LeaderFor(25, tip) // epoch 2
	require.False(t, pending)
	assert.NotEqual(t, accounts.PubKey{}, accounts.PubKey(leader))
}

func TestResolverPendingWhenDBMissing(t *testing.T) {
	r, tip := buildFixture(t, 10)
	delete(r.tree.(*fakeTree).ebbs, 1)
	_, pending := r.LeaderFor(25, tip)
	assert.True(t, pending)
}
