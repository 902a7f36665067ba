// Package voteindex implements the Vote Index (spec.md §4.2): the set
// of received votes, indexed to answer weight_sum(I1 -> I2) queries and
// to detect the three slashable patterns S1, S2, S3. S1 (duplicate
// block at a slot) is detected by package tree; this package owns S2
// (duplicate vote target slot) and S3 (override).
package voteindex

import (
	"github.com/google/btree"
	"github.com/holiman/uint256"

	"consensuscore/accounts"
	"consensuscore/block"
	"consensuscore/consensus"
	"consensuscore/crypto"
	"consensuscore/logx"
)

const treeDegree = 32

// WeightLookup answers the weight a representative carried at the
// reference epoch of a given slot, the same role the Finality Gadget
// needs (§4.3 step 1's "weights at the reference epoch"). Kept as a
// narrow interface so the Vote Index never imports package schedule.
type WeightLookup interface {
	WeightAt(slot uint64, rep accounts.PubKey) *uint256.Int
}

type pairKey struct {
	source block.Pair
	target block.Pair
}

// S2Evidence is two votes from the same author with the same target
// slot but different target blocks.
type S2Evidence struct {
	Author [32]byte
	First  *consensus.Vote
	Second *consensus.Vote
}

// S3Evidence is an overriding vote pair: an existing vote (s1,s4) whose
// interval strictly contains a new vote's interval (s2,s3), or vice
// versa, from the same author.
type S3Evidence struct {
	Author  [32]byte
	Outer   *consensus.Vote
	Inner   *consensus.Vote
}

// interval is the btree element for one author's votes, ordered by
// source slot then target slot, letting the S3 straddle check in
// checkS3 seek straight to the source-slot window a new vote could
// possibly straddle instead of scanning every vote the author has
// ever cast.
type interval struct {
	vote *consensus.Vote
}

func lessInterval(a, b interval) bool {
	if a.vote.Source.Slot != b.vote.Source.Slot {
		return a.vote.Source.Slot < b.vote.Source.Slot
	}
	return a.vote.Target.Slot < b.vote.Target.Slot
}

// Index is the Vote Index actor's private state.
type Index struct {
	weights WeightLookup

	// votesBySourceTarget sums weight per exact (source, target) pair.
	votesBySourceTarget map[pairKey]map[[32]byte]*consensus.Vote

	// targetSlotByAuthor detects S2: one vote per (author, target slot).
	targetSlotByAuthor map[[32]byte]map[uint64]*consensus.Vote

	// intervalsByAuthor backs the S3 straddle check (O(log n) seek,
	// O(k) walk over the candidates; see checkS3).
	intervalsByAuthor map[[32]byte]*btree.BTreeG[interval]

	s2Evidence []S2Evidence
	s3Evidence []S3Evidence
}

// New creates an empty Vote Index.
func New(weights WeightLookup) *Index {
	return &Index{
		weights:             weights,
		votesBySourceTarget: make(map[pairKey]map[[32]byte]*consensus.Vote),
		targetSlotByAuthor:  make(map[[32]byte]map[uint64]*consensus.Vote),
		intervalsByAuthor:   make(map[[32]byte]*btree.BTreeG[interval]),
	}
}

// Insert installs a structurally-valid vote. It is idempotent for
// exact duplicates and detects S2/S3 against the author's prior votes.
func (idx *Index) Insert(v *consensus.Vote) {
	key := pairKey{source: v.Source, target: v.Target}
	byAuthor, ok := idx.votesBySourceTarget[key]
	if !ok {
		byAuthor = make(map[[32]byte]*consensus.Vote)
		idx.votesBySourceTarget[key] = byAuthor
	}
	if _, dup := byAuthor[v.Author]; dup {
		return // same author, same exact pair: no-op
	}
	byAuthor[v.Author] = v

	idx.checkS2(v)
	idx.checkS3(v)

	targets, ok := idx.targetSlotByAuthor[v.Author]
	if !ok {
		targets = make(map[uint64]*consensus.Vote)
		idx.targetSlotByAuthor[v.Author] = targets
	}
	targets[v.Target.Slot] = v

	tr, ok := idx.intervalsByAuthor[v.Author]
	if !ok {
		tr = btree.NewG(treeDegree, lessInterval)
		idx.intervalsByAuthor[v.Author] = tr
	}
	tr.ReplaceOrInsert(interval{vote: v})
}

func (idx *Index) checkS2(v *consensus.Vote) {
	targets, ok := idx.targetSlotByAuthor[v.Author]
	if !ok {
		return
	}
	prior, exists := targets[v.Target.Slot]
	if exists && prior.Target.BlockHash != v.Target.BlockHash {
		idx.s2Evidence = append(idx.s2Evidence, S2Evidence{Author: v.Author, First: prior, Second: v})
		logx.Warnf("VOTEINDEX", "S2 evidence: author %x voted two targets at slot %d", v.Author, v.Target.Slot)
	}
}

// checkS3 asks: for new vote (s2,s3), does any existing vote (s1,s4)
// from the same author satisfy s1 < s2 < s3 < s4 (the existing vote
// overrides/straddles the new one) or the symmetric case (the new vote
// straddles an existing one)? Either case requires the other vote's
// source slot to fall strictly on one side of s2: outer-existing needs
// s1 < s2, inner-existing needs s2 < s1 < s3. The tree is ordered by
// source slot first, so two range-bounded walks (below s2, and between
// s2 and s3) reach every candidate without visiting entries whose
// source slot is >= s3 — the btree seek to each range boundary is
// O(log n), though the walk itself is still O(k) in the number of
// candidates the window contains, not a blanket O(log n) per insert.
func (idx *Index) checkS3(v *consensus.Vote) {
	tr, ok := idx.intervalsByAuthor[v.Author]
	if !ok {
		return
	}
	s2, s3 := v.Source.Slot, v.Target.Slot

	below := interval{vote: &consensus.Vote{Source: block.Pair{Slot: 0}}}
	atS2 := interval{vote: &consensus.Vote{Source: block.Pair{Slot: s2}}}
	atS3 := interval{vote: &consensus.Vote{Source: block.Pair{Slot: s3}}}

	// Case A: existing vote is the outer interval (s1 < s2 < s3 < s4).
	tr.AscendRange(below, atS2, func(item interval) bool {
		other := item.vote
		s1, s4 := other.Source.Slot, other.Target.Slot
		if straddles(s1, s4, s2, s3) {
			idx.s3Evidence = append(idx.s3Evidence, S3Evidence{Author: v.Author, Outer: other, Inner: v})
			logx.Warnf("VOTEINDEX", "S3 evidence: author %x override with outer [%d,%d] inner [%d,%d]", v.Author, s1, s4, s2, s3)
		}
		return true
	})

	// Case B: new vote is the outer interval (s2 < s1 < s4 < s3).
	tr.AscendRange(atS2, atS3, func(item interval) bool {
		other := item.vote
		s1, s4 := other.Source.Slot, other.Target.Slot
		if s1 == s2 {
			return true // equal source slot, not strictly inside
		}
		if straddles(s2, s3, s1, s4) {
			idx.s3Evidence = append(idx.s3Evidence, S3Evidence{Author: v.Author, Outer: v, Inner: other})
			logx.Warnf("VOTEINDEX", "S3 evidence: author %x override with outer [%d,%d] inner [%d,%d]", v.Author, s2, s3, s1, s4)
		}
		return true
	})
}

// straddles reports whether [outerLo, outerHi] strictly contains
// [innerLo, innerHi]: outerLo < innerLo < innerHi < outerHi.
func straddles(outerLo, outerHi, innerLo, innerHi uint64) bool {
	return outerLo < innerLo && innerHi < outerHi
}

// WeightSum returns the total authoring weight, at the reference epoch
// of target, of every recorded vote with exactly this source and
// target.
func (idx *Index) WeightSum(source, target block.Pair) *uint256.Int {
	total := uint256.NewInt(0)
	byAuthor, ok := idx.votesBySourceTarget[pairKey{source: source, target: target}]
	if !ok {
		return total
	}
	for author := range byAuthor {
		pub := accounts.PubKey(author)
		total = new(uint256.Int).Add(total, idx.weights.WeightAt(target.Slot, pub))
	}
	return total
}

// VotersFor returns the authors who voted exactly source -> target.
func (idx *Index) VotersFor(source, target block.Pair) []crypto.Hash {
	byAuthor, ok := idx.votesBySourceTarget[pairKey{source: source, target: target}]
	if !ok {
		return nil
	}
	out := make([]crypto.Hash, 0, len(byAuthor))
	for author := range byAuthor {
		out = append(out, crypto.Hash(author))
	}
	return out
}

// SlashableEvidence returns every retained S2/S3 record involving
// author.
func (idx *Index) SlashableEvidence(author [32]byte) (s2 []S2Evidence, s3 []S3Evidence) {
	for _, e := range idx.s2Evidence {
		if e.Author == author {
			s2 = append(s2, e)
		}
	}
	for _, e := range idx.s3Evidence {
		if e.Author == author {
			s3 = append(s3, e)
		}
	}
	return s2, s3
}

// VotersWithTargetInRange returns every distinct author who cast at
// least one accepted vote with target slot in [lo, hi], per spec.md
// §4.3 step 1's "accounts that participated in voting during the
// reference epoch" (Open Question #2 resolved in favor of "accepted
// into the Vote Index", independent of that vote's own justification).
func (idx *Index) VotersWithTargetInRange(lo, hi uint64) []accounts.PubKey {
	seen := make(map[[32]byte]struct{})
	var out []accounts.PubKey
	for author, targets := range idx.targetSlotByAuthor {
		for slot := range targets {
			if slot >= lo && slot <= hi {
				if _, ok := seen[author]; !ok {
					seen[author] = struct{}{}
					out = append(out, accounts.PubKey(author))
				}
				break
			}
		}
	}
	return out
}
