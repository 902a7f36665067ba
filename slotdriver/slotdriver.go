// Package slotdriver implements the Slot Driver (spec.md §4.5): the
// local slot counter, the leader-mode state machine, fork-choice for
// head, and block assembly/hand-off to the Block Tree. It is the only
// component coupled to wall-clock time.
package slotdriver

import (
	"crypto/ed25519"
	"time"

	"consensuscore/accounts"
	"consensuscore/block"
	"consensuscore/crypto"
	"consensuscore/events"
	"consensuscore/logx"
)

// TreeView is the slice of the Block Tree the driver needs: inserting
// assembled blocks and reading candidate heads' ancestry/weight facts
// for fork-choice.
type TreeView interface {
	Insert(b *block.Block) error
	Chain(hash crypto.Hash) []crypto.Hash
	Heaviest() crypto.Hash
}

// LeaderSource answers the scheduled leader for a slot on a fork, the
// same method signature as tree.LeaderChecker/schedule.Resolver.
type LeaderSource interface {
	LeaderFor(slot uint64, tip crypto.Hash) (author [32]byte, pending bool)
}

// JustificationView answers the most recently justified slot on a
// chain and the chain's accumulated vote weight, the two tie-break
// inputs spec.md §4.5's fork-choice rule layers on top of the Block
// Tree's own longest-chain signal.
type JustificationView interface {
	MostRecentJustifiedSlot(chainTip crypto.Hash) uint64
	AccumulatedWeight(chainTip crypto.Hash) uint64
}

// Pools delivers the queued transactions/opens/votes a new block
// should carry, per spec.md §6's external Pools boundary.
type Pools interface {
	DrainForSlot(slot uint64) []byte
}

// Bank resolves the new state root a candidate block would commit to,
// the externally-owned boundary spec.md §6 calls Bank.
type Bank interface {
	ComputeStateRoot(parent crypto.Hash, payload []byte) crypto.Hash
	SnapshotAt(stateRoot crypto.Hash) *accounts.Snapshot
}

// Driver is the Slot Driver actor's private state.
type Driver struct {
	localAuthor  [32]byte
	localPriv    ed25519.PrivateKey
	slotDuration time.Duration
	genesisTime  time.Time

	tree      TreeView
	schedule  LeaderSource
	just      JustificationView
	pools     Pools
	bank      Bank
	bus       *events.Bus

	sLocal         uint64
	inLeaderMode   bool
	heldMessages   []heldMessage
}

type heldMessage struct {
	slot uint64
	kind string
	data []byte
}

// New creates a Slot Driver for a node whose representative identity
// is (localAuthor, localPriv).
func New(localAuthor [32]byte, localPriv ed25519.PrivateKey, slotDuration time.Duration, genesisTime time.Time,
	tree TreeView, schedule LeaderSource, just JustificationView, pools Pools, bank Bank, bus *events.Bus) *Driver {
	return &Driver{
		localAuthor:  localAuthor,
		localPriv:    localPriv,
		slotDuration: slotDuration,
		genesisTime:  genesisTime,
		tree:         tree,
		schedule:     schedule,
		just:         just,
		pools:        pools,
		bank:         bank,
		bus:          bus,
	}
}

// CurrentSlot computes s_local = floor((now - genesis_time) / d), per
// spec.md §4.5.
func (d *Driver) CurrentSlot(now time.Time) uint64 {
	elapsed := now.Sub(d.genesisTime)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / d.slotDuration)
}

// Run ticks the slot clock forever until stop is closed, the teacher's
// tickAndFlush shape (a single-goroutine select over a ticker and a
// quit channel) generalized from entry-recording to slot advancement.
func (d *Driver) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(d.slotDuration)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			d.Advance(now)
		case <-stop:
			return
		}
	}
}

// Advance fast-forwards s_local to the slot now implies, processing
// every intermediate slot boundary (so a missed wall-clock deadline
// never skips a slot's leader determination), per spec.md §5's
// ordering guarantee.
func (d *Driver) Advance(now time.Time) {
	target := d.CurrentSlot(now)
	for d.sLocal < target {
		d.sLocal++
		d.onSlotBoundary(d.sLocal)
	}
	d.replayHeldMessages()
}

func (d *Driver) onSlotBoundary(s uint64) {
	head := d.tree.Heaviest()
	leader, pending := d.schedule.LeaderFor(s, head)
	isLocalLeader := !pending && leader == d.localAuthor

	nextLeader, nextPending := d.schedule.LeaderFor(s+1, head)
	isLocalLeaderNext := !nextPending && nextLeader == d.localAuthor

	if isLocalLeader && !d.inLeaderMode {
		d.inLeaderMode = true
		d.bus.Publish(events.StartLeaderMode(s))
	}

	if isLocalLeader {
		d.bus.Publish(events.NewLeaderSlot(s))
		d.proposeBlock(s, head)
	} else {
		logx.Infof("SLOTDRIVER", "slot %d missed: leader %x did not propose (pending=%v)", s, leader, pending)
	}

	if d.inLeaderMode && !isLocalLeaderNext {
		d.inLeaderMode = false
		d.bus.Publish(events.EndLeaderMode(s))
	}
}

func (d *Driver) proposeBlock(s uint64, parent crypto.Hash) {
	payload := d.pools.DrainForSlot(s)
	stateRoot := d.bank.ComputeStateRoot(parent, payload)

	b := block.New(d.localAuthor, s, parent, payload, stateRoot)
	b.Sign(d.localPriv)

	if err := d.tree.Insert(b); err != nil {
		logx.Errorf("SLOTDRIVER", "failed to insert self-proposed block at slot %d: %v", s, err)
		return
	}
	logx.Infof("SLOTDRIVER", "proposed block %x at slot %d", b.Hash, s)
}

// HoldMessage defers a message whose slot exceeds s_local. Once the
// clock reaches its slot, Advance logs it and drops it from the holding
// area; the Driver does not pass it on to any other component.
func (d *Driver) HoldMessage(slot uint64, kind string, data []byte) {
	d.heldMessages = append(d.heldMessages, heldMessage{slot: slot, kind: kind, data: data})
}

func (d *Driver) replayHeldMessages() {
	remaining := d.heldMessages[:0]
	for _, m := range d.heldMessages {
		if m.slot > d.sLocal {
			remaining = append(remaining, m)
			continue
		}
		logx.Infof("SLOTDRIVER", "replaying held %s message for slot %d", m.kind, m.slot)
	}
	d.heldMessages = remaining
}

// Head orders candidates by the fork-choice tie-breaks from spec.md
// §4.5: greatest most-recently-justified slot first, then greatest
// accumulated vote weight, then the lexicographically greater block
// hash. It does not compare chain length.
func Head(candidates []crypto.Hash, just JustificationView) crypto.Hash {
	if len(candidates) == 0 {
		return crypto.ZeroHash
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best, just) {
			best = c
		}
	}
	return best
}

func better(a, b crypto.Hash, just JustificationView) bool {
	ja, jb := just.MostRecentJustifiedSlot(a), just.MostRecentJustifiedSlot(b)
	if ja != jb {
		return ja > jb
	}
	wa, wb := just.AccumulatedWeight(a), just.AccumulatedWeight(b)
	if wa != wb {
		return wa > wb
	}
	return lessHash(b, a)
}

func lessHash(a, b crypto.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
