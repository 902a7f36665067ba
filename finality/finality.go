// Package finality implements the Finality Gadget (spec.md §4.4): the
// justified set J(W) and finalized set F(W) over block-slot pairs,
// updated incrementally as votes and blocks arrive.
package finality

import (
	"github.com/holiman/uint256"

	"consensuscore/block"
	"consensuscore/consensus"
	"consensuscore/crypto"
	"consensuscore/logx"
)

// TreeView is the slice of the Block Tree the gadget needs: ancestry
// and block lookup, plus the finalize-and-prune operation itself.
type TreeView interface {
	IsDescendant(a, d crypto.Hash) bool
	Chain(hash crypto.Hash) []crypto.Hash
	Block(hash crypto.Hash) *block.Block
	Finalize(hash crypto.Hash) []crypto.Hash
}

// WeightSource answers the total authoring weight of votes recorded
// with an exact source/target pair.
type WeightSource interface {
	WeightSum(source, target block.Pair) *uint256.Int
}

// ReferenceWeight answers the total principal-representative weight at
// the reference epoch of the given block, the denominator the 2/3
// justification threshold is measured against.
type ReferenceWeight interface {
	TotalWeightAt(blockHash crypto.Hash) *uint256.Int
}

// Gadget is the Finality Gadget actor's private state.
type Gadget struct {
	tree    TreeView
	votes   WeightSource
	weights ReferenceWeight

	justified map[block.Pair]struct{}
	finalized map[block.Pair]struct{}

	// minJustifiedSlot is the smallest slot at which each block hash
	// has ever been explicitly justified. It backs the implicit-skip
	// propagation spec.md §5 requires for missed slots ("each slot's
	// leader is still determined and recorded as missed" — the pair
	// (B, s) for a slot s that never got its own block still counts as
	// justified if B, the block covering s, was justified at some
	// earlier slot and nothing has since superseded it on this fork).
	minJustifiedSlot map[crypto.Hash]uint64

	// edgesBySource records every (source -> target) edge for which at
	// least one vote has been inserted, regardless of whether source
	// was justified at the time. It backs the forward cascade
	// OnVoteInserted runs: when a pair newly enters J, every edge
	// already recorded with that pair as source is re-tested, so that
	// J/F do not depend on the arrival order of votes (spec.md §8).
	edgesBySource map[block.Pair]map[block.Pair]struct{}
}

// New creates a Finality Gadget with only the genesis pair justified
// and finalized, per spec.md §4.4.
func New(genesisHash crypto.Hash, tree TreeView, votes WeightSource, weights ReferenceWeight) *Gadget {
	genesisPair := block.Pair{BlockHash: genesisHash, Slot: 0}
	return &Gadget{
		tree:             tree,
		votes:            votes,
		weights:          weights,
		justified:        map[block.Pair]struct{}{genesisPair: {}},
		finalized:        map[block.Pair]struct{}{genesisPair: {}},
		minJustifiedSlot: map[crypto.Hash]uint64{genesisHash: 0},
		edgesBySource:    make(map[block.Pair]map[block.Pair]struct{}),
	}
}

// IsJustified reports whether pair is in J(W).
func (g *Gadget) IsJustified(pair block.Pair) bool {
	_, ok := g.justified[pair]
	return ok
}

// IsFinalized reports whether pair is in F(W).
func (g *Gadget) IsFinalized(pair block.Pair) bool {
	_, ok := g.finalized[pair]
	return ok
}

// OnVoteInserted recomputes justification and finalization in response
// to one freshly-indexed vote. It returns the block hashes newly
// finalized (root-to-tip order), for the caller to emit Finalize
// events over — the gadget itself does not own the event bus.
//
// The vote's edge is recorded unconditionally, even if its source is
// not yet justified: a vote processed "early" still contributes its
// weight to weight_sum immediately (the Vote Index already sums every
// recorded vote regardless of arrival order), so the only thing that
// can be order-sensitive is the justification *check* itself, which
// propagateFrom re-runs against every recorded edge once its source
// does become justified — whenever that happens.
func (g *Gadget) OnVoteInserted(v *consensus.Vote) []crypto.Hash {
	g.recordEdge(v.Source, v.Target)
	return g.propagateFrom(v.Source)
}

func (g *Gadget) recordEdge(source, target block.Pair) {
	targets, ok := g.edgesBySource[source]
	if !ok {
		targets = make(map[block.Pair]struct{})
		g.edgesBySource[source] = targets
	}
	targets[target] = struct{}{}
}

// propagateFrom re-tests every edge recorded with pair as its source,
// and recursively every edge recorded at any pair that newly becomes
// justified as a result, calling tryFinalize on each edge found
// justified. If pair itself is not (yet) justified, there is nothing
// to cascade and it returns immediately — the cascade resumes from
// pair the next time a vote arrives that justifies it.
func (g *Gadget) propagateFrom(pair block.Pair) []crypto.Hash {
	if _, ok := g.justified[pair]; !ok {
		return nil
	}

	var newlyFinalized []crypto.Hash
	queue := []block.Pair{pair}
	queued := map[block.Pair]bool{pair: true}

	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]

		for target := range g.edgesBySource[source] {
			if !g.tryJustify(source, target) {
				continue
			}
			newlyFinalized = append(newlyFinalized, g.tryFinalize(source, target)...)
			if !queued[target] {
				queued[target] = true
				queue = append(queue, target)
			}
		}
	}
	return newlyFinalized
}

// tryJustify applies the justification rule: target joins J(W) if
// source is already justified, source's block is an ancestor of
// target's block, source's slot precedes target's, and the recorded
// vote weight for this exact edge exceeds 2/3 of the reference weight.
func (g *Gadget) tryJustify(source, target block.Pair) bool {
	if _, ok := g.justified[target]; ok {
		return true // already justified by an earlier edge
	}
	if _, ok := g.justified[source]; !ok {
		return false
	}
	if source.Slot >= target.Slot {
		return false
	}
	if !g.tree.IsDescendant(source.BlockHash, target.BlockHash) {
		return false
	}

	weight := g.votes.WeightSum(source, target)
	total := g.weights.TotalWeightAt(target.BlockHash)
	if !exceedsTwoThirds(weight, total) {
		return false
	}

	g.justified[target] = struct{}{}
	if cur, ok := g.minJustifiedSlot[target.BlockHash]; !ok || target.Slot < cur {
		g.minJustifiedSlot[target.BlockHash] = target.Slot
	}
	logx.Infof("FINALITY", "justified slot %d (block %x) via edge from slot %d", target.Slot, target.BlockHash, source.Slot)
	return true
}

// exceedsTwoThirds reports whether weight*3 > total*2, avoiding
// fractional division on the uint256 weights.
func exceedsTwoThirds(weight, total *uint256.Int) bool {
	lhs := new(uint256.Int).Mul(weight, uint256.NewInt(3))
	rhs := new(uint256.Int).Mul(total, uint256.NewInt(2))
	return lhs.Cmp(rhs) > 0
}

// tryFinalize checks C1-C3 for the (source, target) edge that was just
// justified: target.Slot - source.Slot is k, and every intermediate
// slot s+1..s+k-1 must already be justified via the block covering
// that slot on chain(target), per spec.md §4.4's finalization rule.
// "Covering" a slot with no block of its own is resolved via implicit
// skip (isJustifiedAt): the missed slot carries forward the most
// recent block's justification.
func (g *Gadget) tryFinalize(source, target block.Pair) []crypto.Hash {
	k := target.Slot - source.Slot
	if k == 0 {
		return nil
	}

	chain := g.tree.Chain(target.BlockHash)
	for i := uint64(1); i < k; i++ {
		slot := source.Slot + i
		coveringHash, ok := headAtSlot(g.tree, chain, slot)
		if !ok {
			return nil
		}
		if !g.isJustifiedAt(coveringHash, slot) {
			return nil
		}
	}

	if _, already := g.finalized[source]; already {
		return nil
	}
	g.finalized[source] = struct{}{}

	newly := g.tree.Finalize(source.BlockHash)
	for _, h := range newly {
		blk := g.tree.Block(h)
		g.finalized[block.Pair{BlockHash: h, Slot: blk.Slot}] = struct{}{}
	}
	logx.Infof("FINALITY", "finalized slot %d (block %x), k=%d", source.Slot, source.BlockHash, k)
	return newly
}

// isJustifiedAt reports whether (blockHash, slot) counts as justified,
// either explicitly or by implicit-skip propagation: if blockHash was
// explicitly justified at any slot <= the one asked about, it carries
// that justification forward through every later slot it still covers
// (the caller has already established, via headAtSlot, that no other
// block superseded it before slot). A missed slot therefore never
// blocks the k-window on its own, matching spec.md §8 scenario 2.
func (g *Gadget) isJustifiedAt(blockHash crypto.Hash, slot uint64) bool {
	if _, ok := g.justified[block.Pair{BlockHash: blockHash, Slot: slot}]; ok {
		return true
	}
	min, ok := g.minJustifiedSlot[blockHash]
	return ok && min <= slot
}

// headAtSlot returns the last block in chain (root-to-tip ordered)
// whose own slot does not exceed slot — the block the pair (_, slot)
// is conventionally anchored to when slot itself carries no block.
func headAtSlot(tree TreeView, chain []crypto.Hash, slot uint64) (crypto.Hash, bool) {
	var found crypto.Hash
	ok := false
	for _, h := range chain {
		b := tree.Block(h)
		if b.Slot <= slot {
			found = h
			ok = true
		} else {
			break
		}
	}
	return found, ok
}
