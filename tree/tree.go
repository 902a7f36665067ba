// Package tree implements the Block Tree (spec.md §4.1): the directed
// tree of known blocks rooted at genesis, ancestry/conflict queries,
// epoch-boundary-block resolution, and the immutable finalized prefix.
//
// Blocks are stored in an arena keyed by their stable hash, with parent
// links for ancestry and a children index for fast chain-extension
// queries, resolving the cyclic-reference problem spec.md §9 calls out
// (an id-keyed arena rather than Go pointers in both directions). The
// ancestor-walk/common-ancestor/root-advance algorithms are a port of
// the original protocol's Dag<K,V> (node/dag.rs): root, heads, and a
// tracked deepest chain, with set_root used as the finalize-then-prune
// step.
package tree

import (
	"consensuscore/block"
	"consensuscore/crypto"
	"consensuscore/logx"

	conserr "consensuscore/errors"
)

// LeaderChecker answers whether author is the scheduled leader for slot
// on the fork ending at tip, per the Schedule Engine (§4.3). The Block
// Tree depends on it only through this narrow interface — never a
// direct import of package schedule — keeping the two components
// message-coupled rather than sharing mutable state, per spec.md §5.
type LeaderChecker interface {
	LeaderFor(slot uint64, tip crypto.Hash) (author [32]byte, pending bool)
}

type node struct {
	block     *block.Block
	children  []crypto.Hash
	finalized bool
}

// S1Evidence is the slashable record of an author publishing two
// distinct blocks at the same slot.
type S1Evidence struct {
	Author [32]byte
	Slot   uint64
	First  crypto.Hash
	Second crypto.Hash
}

// Tree is the Block Tree actor's private state: callers are expected to
// serialize access the way a single-goroutine actor would (see
// spec.md §5) — Tree itself holds no lock.
type Tree struct {
	nodes    map[crypto.Hash]*node
	root     crypto.Hash // deepest finalized block
	heads    map[crypto.Hash]struct{}
	tallest  crypto.Hash // head of the tallest known chain from root
	heights  map[crypto.Hash]uint64
	scheduler LeaderChecker

	// authorSlot detects S1: same author, same slot, different block.
	authorSlot map[authorSlotKey]crypto.Hash
	s1Evidence []S1Evidence
}

type authorSlotKey struct {
	author [32]byte
	slot   uint64
}

// New creates a Block Tree rooted at genesis.
func New(genesis *block.Block, scheduler LeaderChecker) *Tree {
	h := genesis.Hash
	t := &Tree{
		nodes:      map[crypto.Hash]*node{h: {block: genesis, finalized: true}},
		root:       h,
		heads:      map[crypto.Hash]struct{}{h: {}},
		tallest:    h,
		heights:    map[crypto.Hash]uint64{h: 0},
		scheduler:  scheduler,
		authorSlot: make(map[authorSlotKey]crypto.Hash),
	}
	return t
}

// Insert validates and installs a new block, per spec.md §4.1.
func (t *Tree) Insert(b *block.Block) error {
	if _, exists := t.nodes[b.Hash]; exists {
		return nil // idempotent: inserting the same block twice is a no-op
	}

	parent, ok := t.nodes[b.ParentHash]
	if !ok {
		return conserr.Transient(conserr.CodeUnknownParent, "block %x: unknown parent %x", b.Hash, b.ParentHash)
	}
	if b.Slot <= parent.block.Slot {
		return conserr.Structural(conserr.CodeNonIncreasingSlot, "block %x: slot %d does not exceed parent slot %d", b.Hash, b.Slot, parent.block.Slot)
	}
	if !b.VerifySignature(b.Author[:]) {
		return conserr.Structural(conserr.CodeBadSignature, "block %x: bad signature", b.Hash)
	}

	if t.scheduler != nil {
		leader, pending := t.scheduler.LeaderFor(b.Slot, b.ParentHash)
		if !pending && leader != b.Author {
			return conserr.Structural(conserr.CodeWrongLeader, "block %x: author is not scheduled leader for slot %d", b.Hash, b.Slot)
		}
	}

	key := authorSlotKey{author: b.Author, slot: b.Slot}
	prevHash, duplicateSlot := t.authorSlot[key]
	duplicateSlot = duplicateSlot && prevHash != b.Hash
	if duplicateSlot {
		t.s1Evidence = append(t.s1Evidence, S1Evidence{Author: b.Author, Slot: b.Slot, First: prevHash, Second: b.Hash})
		logx.Warnf("BLOCKTREE", "S1 evidence: author %x produced two blocks at slot %d", b.Author, b.Slot)
	}
	t.authorSlot[key] = b.Hash

	height := t.heights[b.ParentHash] + 1
	t.nodes[b.Hash] = &node{block: b}
	t.heights[b.Hash] = height
	parent.children = append(parent.children, b.Hash)

	delete(t.heads, b.ParentHash)
	t.heads[b.Hash] = struct{}{}

	if isTaller(height, b.Hash, t.heights[t.tallest], t.tallest) {
		t.tallest = b.Hash
	}

	// The conflicting block is still installed — it may yet be voted on
	// and needs to participate in fork choice — but Insert reports the
	// DuplicateSlot failure spec.md §4.1 names so the caller can emit a
	// Slash event over the retained S1 evidence.
	if duplicateSlot {
		return conserr.Slashable(conserr.CodeDuplicateSlot, "block %x: author %x already produced block %x at slot %d", b.Hash, b.Author, prevHash, b.Slot)
	}
	return nil
}

func isTaller(height uint64, hash crypto.Hash, otherHeight uint64, otherHash crypto.Hash) bool {
	if height != otherHeight {
		return height > otherHeight
	}
	return lessHash(otherHash, hash)
}

func lessHash(a, b crypto.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Block returns the block stored under hash, or nil.
func (t *Tree) Block(hash crypto.Hash) *block.Block {
	if n, ok := t.nodes[hash]; ok {
		return n.block
	}
	return nil
}

// Chain returns the path genesis -> ... -> hash, or nil if hash is
// unknown.
func (t *Tree) Chain(hash crypto.Hash) []crypto.Hash {
	if _, ok := t.nodes[hash]; !ok {
		return nil
	}
	var path []crypto.Hash
	cur := hash
	for {
		path = append(path, cur)
		n := t.nodes[cur]
		if n.block.IsGenesis() {
			break
		}
		cur = n.block.ParentHash
	}
	// reverse into root-to-hash order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// IsDescendant reports whether a is an ancestor of (or equal to) d —
// i.e. a appears in chain(d).
func (t *Tree) IsDescendant(a, d crypto.Hash) bool {
	if a == d {
		return true
	}
	cur := d
	for {
		n, ok := t.nodes[cur]
		if !ok {
			return false
		}
		if n.block.IsGenesis() {
			return false
		}
		cur = n.block.ParentHash
		if cur == a {
			return true
		}
	}
}

// Conflicts reports whether neither a nor b descends from the other.
func (t *Tree) Conflicts(a, b crypto.Hash) bool {
	return !t.IsDescendant(a, b) && !t.IsDescendant(b, a)
}

// CommonAncestor returns the nearest shared ancestor of a and b.
func (t *Tree) CommonAncestor(a, b crypto.Hash) (crypto.Hash, bool) {
	ha, okA := t.heights[a]
	hb, okB := t.heights[b]
	if !okA || !okB {
		return crypto.Hash{}, false
	}
	for a != b {
		if ha > hb {
			a = t.nodes[a].block.ParentHash
			ha--
		} else {
			b = t.nodes[b].block.ParentHash
			hb--
		}
	}
	return a, true
}

// Heaviest returns the head of the tallest known chain (ties broken in
// favor of the greater block hash, per isTaller). The Slot Driver uses
// it as its head directly; package slotdriver's Head applies the
// justified-slot and vote-weight ordering separately.
func (t *Tree) Heaviest() crypto.Hash {
	return t.tallest
}

// EBBOfEpoch returns the epoch-boundary block of epoch e on chain(tip):
// the first block in epoch e's slot range on that chain. Returns
// (zero, false) if no such block exists yet on that fork.
func (t *Tree) EBBOfEpoch(e uint64, epochLength uint64, tip crypto.Hash) (crypto.Hash, bool) {
	lo := e * epochLength
	hi := lo + epochLength - 1

	chain := t.Chain(tip)
	var found crypto.Hash
	ok := false
	for _, h := range chain {
		blk := t.nodes[h].block
		if blk.Slot >= lo && blk.Slot <= hi {
			found = h
			ok = true
			break // chain is root-to-tip ordered; first match is earliest
		}
	}
	return found, ok
}

// Finalize marks every ancestor of hash (inclusive) on its chain as
// finalized and advances the pruning root to hash, mirroring the
// original Chain::finalize_hash's "walk root..hash, finalize each,
// then set_root" sequence. It returns the hashes newly finalized, in
// root-to-hash order, for the caller to emit Finalize events over.
func (t *Tree) Finalize(hash crypto.Hash) []crypto.Hash {
	chain := t.Chain(hash)
	var newlyFinalized []crypto.Hash
	for _, h := range chain {
		n := t.nodes[h]
		if !n.finalized {
			n.finalized = true
			newlyFinalized = append(newlyFinalized, h)
		}
	}
	t.root = hash
	return newlyFinalized
}

// IsFinalized reports whether hash has been finalized.
func (t *Tree) IsFinalized(hash crypto.Hash) bool {
	n, ok := t.nodes[hash]
	return ok && n.finalized
}

// Prune removes every block that is neither on the finalized chain
// (genesis through the current finalized root) nor a descendant of that
// root, per spec.md §4.1 ("sibling subtrees from the finalized chain
// may be pruned"). Deferred until no outstanding snapshot handle
// references the pruned subtree is the caller's responsibility (§5);
// Prune itself is unconditional once called.
func (t *Tree) Prune() {
	keep := make(map[crypto.Hash]struct{})
	var walk func(h crypto.Hash)
	walk = func(h crypto.Hash) {
		if _, ok := keep[h]; ok {
			return
		}
		keep[h] = struct{}{}
		for _, c := range t.nodes[h].children {
			walk(c)
		}
	}
	walk(t.root)
	for _, h := range t.Chain(t.root) {
		keep[h] = struct{}{}
	}

	for h := range t.nodes {
		if _, ok := keep[h]; !ok {
			delete(t.nodes, h)
			delete(t.heights, h)
			delete(t.heads, h)
		}
	}
}

// S1SlashEvidence returns every retained S1 (duplicate-block) evidence
// record.
func (t *Tree) S1SlashEvidence() []S1Evidence {
	return t.s1Evidence
}
