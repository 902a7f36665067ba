package schedule

import (
	"github.com/holiman/uint256"

	"consensuscore/accounts"
	"consensuscore/block"
	"consensuscore/crypto"
)

// TreeView is the narrow slice of the Block Tree the Schedule Engine
// needs to resolve DB/DB' (§4.3): ancestry-aware epoch-boundary-block
// lookup and block retrieval by hash. It depends on package tree only
// through this interface, never a direct import, the same
// message-coupling discipline package tree applies to package schedule
// through LeaderChecker.
type TreeView interface {
	EBBOfEpoch(epoch, epochLength uint64, tip crypto.Hash) (crypto.Hash, bool)
	Block(hash crypto.Hash) *block.Block
}

// VoteParticipation answers which representatives cast at least one
// accepted vote targeting a slot within the given epoch, per spec.md
// §4.3 step 1.
type VoteParticipation interface {
	VotersInEpoch(epoch uint64) []accounts.PubKey
}

// SnapshotAt resolves the account snapshot committed by a given state
// root, the boundary this package crosses into the externally-owned
// bank (spec.md §6's Bank interface).
type SnapshotAt interface {
	SnapshotAt(stateRoot crypto.Hash) *accounts.Snapshot
}

type resolverCacheKey struct {
	targetEpoch uint64
	dbPrime     crypto.Hash
}

// Resolver is the Schedule Engine actor: per (fork, epoch) leader
// schedule resolution and caching.
type Resolver struct {
	epochLength   uint64
	genesisLeader accounts.PubKey
	tree          TreeView
	participation VoteParticipation
	snapshots     SnapshotAt

	cache map[resolverCacheKey]*Epoch
}

// NewResolver builds a Schedule Engine over epochLength-slot epochs.
// genesisLeader is the account that leads every slot of epoch 0, per
// spec.md §4.3's special case.
func NewResolver(epochLength uint64, genesisLeader accounts.PubKey, tree TreeView, participation VoteParticipation, snapshots SnapshotAt) *Resolver {
	return &Resolver{
		epochLength:   epochLength,
		genesisLeader: genesisLeader,
		tree:          tree,
		participation: participation,
		snapshots:     snapshots,
		cache:         make(map[resolverCacheKey]*Epoch),
	}
}

// LeaderFor implements tree.LeaderChecker: the leader for slot on the
// fork ending at tip, or pending if DB' does not yet exist on that
// fork.
func (r *Resolver) LeaderFor(slot uint64, tip crypto.Hash) (author [32]byte, pending bool) {
	targetEpoch := slot / r.epochLength
	if targetEpoch == 0 {
		return r.genesisLeader, false
	}

	ep, ok := r.resolveEpoch(targetEpoch, tip)
	if !ok {
		return [32]byte{}, true
	}
	leader, ok := ep.LeaderForSlot(slot)
	if !ok {
		return [32]byte{}, true
	}
	return leader, false
}

// resolveEpoch computes DB = ebb_of_epoch(e-1, tip), DB' =
// ebb_of_epoch(epoch(DB)-1, tip), and generates (or returns cached) the
// schedule for target epoch e from the snapshot at DB', per spec.md
// §4.3's algorithm.
func (r *Resolver) resolveEpoch(targetEpoch uint64, tip crypto.Hash) (*Epoch, bool) {
	dbHash, ok := r.tree.EBBOfEpoch(targetEpoch-1, r.epochLength, tip)
	if !ok {
		return nil, false
	}
	db := r.tree.Block(dbHash)
	if db == nil {
		return nil, false
	}
	dbEpoch := db.Slot / r.epochLength

	var dbPrime *block.Block
	if dbEpoch == 0 {
		// DB already lands in epoch 0: its own DB' is the genesis block
		// itself, whose state root is the reference snapshot.
		dbPrime = r.tree.Block(dbHash)
		for dbPrime != nil && !dbPrime.IsGenesis() {
			dbPrime = r.tree.Block(dbPrime.ParentHash)
		}
	} else {
		dbPrimeHash, ok := r.tree.EBBOfEpoch(dbEpoch-1, r.epochLength, tip)
		if !ok {
			return nil, false
		}
		dbPrime = r.tree.Block(dbPrimeHash)
	}
	if dbPrime == nil {
		return nil, false
	}

	key := resolverCacheKey{targetEpoch: targetEpoch, dbPrime: dbPrime.Hash}
	if cached, ok := r.cache[key]; ok {
		return cached, true
	}

	referenceEpoch := dbPrime.Slot / r.epochLength
	snapshot := r.snapshots.SnapshotAt(dbPrime.StateRoot)
	voters := r.participation.VotersInEpoch(referenceEpoch)

	weightOf := func(pub accounts.PubKey) *uint256.Int {
		return snapshot.RepresentativeWeight(pub)
	}

	startSlot := targetEpoch * r.epochLength
	generated := Generate(targetEpoch, startSlot, r.epochLength, voters, weightOf)
	r.cache[key] = generated
	return generated, true
}
