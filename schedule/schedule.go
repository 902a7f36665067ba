// Package schedule implements the Schedule Engine (spec.md §4.3):
// per-fork, per-epoch derivation of the leader schedule from the
// representatives that voted in a reference epoch and their weights,
// via weighted sampling with replacement seeded deterministically from
// the epoch number.
package schedule

import (
	"encoding/binary"
	"math/rand"
	"sort"

	"github.com/holiman/uint256"

	"consensuscore/accounts"
	"consensuscore/crypto"
)

// domainTag distinguishes this PRNG's use from any other BLAKE3-seeded
// derivation in the core (e.g. key derivation), per spec.md §6's
// "domain-separated" hashing convention.
var domainTag = []byte("consensuscore/schedule/v1")

// Epoch is one epoch's resolved leader schedule: one leader per slot in
// [StartSlot, StartSlot+Length).
type Epoch struct {
	Number    uint64
	StartSlot uint64
	Length    uint64
	leaders   []accounts.PubKey
}

// LeaderForSlot returns the leader for the given absolute slot, or the
// zero key and false if the slot falls outside this epoch.
func (e *Epoch) LeaderForSlot(slot uint64) (accounts.PubKey, bool) {
	if slot < e.StartSlot || slot >= e.StartSlot+e.Length {
		return accounts.PubKey{}, false
	}
	return e.leaders[slot-e.StartSlot], true
}

// Generate builds the leader schedule for one epoch given the
// representatives in reps (the resolver passes every voter of the
// reference epoch, with no threshold filter) and their weights at the
// epoch's reference point, per spec.md §4.3 steps 3-4: sort ascending by public-key byte
// order, then sample with replacement once per slot from a PRNG seeded
// by BLAKE3(epoch || domain tag).
func Generate(epochNumber, startSlot, length uint64, reps []accounts.PubKey, weightOf func(accounts.PubKey) *uint256.Int) *Epoch {
	sorted := make([]accounts.PubKey, len(reps))
	copy(sorted, reps)
	sort.Slice(sorted, func(i, j int) bool {
		return lessPubKey(sorted[i], sorted[j])
	})

	if len(sorted) == 0 || length == 0 {
		return &Epoch{Number: epochNumber, StartSlot: startSlot, Length: length, leaders: nil}
	}

	cumulative := make([]*uint256.Int, len(sorted))
	total := uint256.NewInt(0)
	for i, rep := range sorted {
		total = new(uint256.Int).Add(total, weightOf(rep))
		cumulative[i] = new(uint256.Int).Set(total)
	}

	if total.IsZero() {
		// no weight anywhere: fall back to round-robin, same shape as an
		// all-equal-weight schedule.
		leaders := make([]accounts.PubKey, length)
		for s := uint64(0); s < length; s++ {
			leaders[s] = sorted[s%uint64(len(sorted))]
		}
		return &Epoch{Number: epochNumber, StartSlot: startSlot, Length: length, leaders: leaders}
	}

	seed := epochSeed(epochNumber)
	rng := rand.New(rand.NewSource(seed))

	leaders := make([]accounts.PubKey, length)
	for s := uint64(0); s < length; s++ {
		leaders[s] = sample(rng, sorted, cumulative, total)
	}

	return &Epoch{Number: epochNumber, StartSlot: startSlot, Length: length, leaders: leaders}
}

func epochSeed(epochNumber uint64) int64 {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, epochNumber)
	h := crypto.SumMany(buf, domainTag)
	return int64(binary.BigEndian.Uint64(h[:8]))
}

// sample draws one representative with probability
// proportional to weight, via cumulative-weight binary search over a
// draw in [0, total).
func sample(rng *rand.Rand, sorted []accounts.PubKey, cumulative []*uint256.Int, total *uint256.Int) accounts.PubKey {
	draw := randomUint256Below(rng, total)
	idx := sort.Search(len(cumulative), func(i int) bool {
		return cumulative[i].Cmp(draw) > 0
	})
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// randomUint256Below draws a uniform value in [0, bound) by rejection
// sampling over a buffer sized to bound's own bit length, avoiding the
// modulo bias a naive mod-reduction would introduce on a non-power-of-
// two bound. Sizing the draw to bound.BitLen() (rather than the full
// 256-bit space) keeps the rejection rate below 50% regardless of how
// small bound is — a real stake total is almost always far smaller
// than 2^256, and drawing full-width candidates against it would make
// the loop's acceptance probability vanish.
func randomUint256Below(rng *rand.Rand, bound *uint256.Int) *uint256.Int {
	bitLen := bound.BitLen()
	if bitLen == 0 {
		return new(uint256.Int)
	}
	byteLen := (bitLen + 7) / 8
	excessBits := byteLen*8 - bitLen
	mask := byte(0xff >> excessBits)

	buf := make([]byte, byteLen)
	for {
		rng.Read(buf)
		buf[0] &= mask
		candidate := new(uint256.Int).SetBytes(buf)
		if candidate.Cmp(bound) < 0 {
			return candidate
		}
	}
}

func lessPubKey(a, b accounts.PubKey) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
