// Package accounts models the account table snapshot the Schedule
// Engine and Finality Gadget read representative weights from. Account
// mutation (transfers, representative changes) happens in the external
// bank collaborator (see package external); this package only reads an
// already-committed snapshot.
package accounts

import (
	"sort"

	"github.com/holiman/uint256"
)

// PubKey is an ed25519 public key.
type PubKey [32]byte

// Account is a public key, balance, and chosen representative, indexed
// durably by insertion order.
type Account struct {
	Index          uint64
	PubKey         PubKey
	Balance        *uint256.Int
	Representative PubKey
}

// Snapshot is an immutable, insertion-ordered view of the account table
// as committed by a single block's state root. Snapshots are passed
// across actors by reference to never-mutated data, per spec.md §5.
type Snapshot struct {
	byIndex []*Account
	byKey   map[PubKey]*Account
}

// NewSnapshot builds a Snapshot from accounts in insertion-index order.
// Callers own the slice; NewSnapshot does not copy it.
func NewSnapshot(ordered []*Account) *Snapshot {
	byKey := make(map[PubKey]*Account, len(ordered))
	for _, a := range ordered {
		byKey[a.PubKey] = a
	}
	return &Snapshot{byIndex: ordered, byKey: byKey}
}

// Get returns the account for pub, or nil if unknown at this snapshot.
func (s *Snapshot) Get(pub PubKey) *Account {
	return s.byKey[pub]
}

// Len returns the number of accounts in the snapshot.
func (s *Snapshot) Len() int { return len(s.byIndex) }

// AccountAt returns the account at insertion index i, in order, for
// state-root Merkle construction.
func (s *Snapshot) AccountAt(i int) *Account { return s.byIndex[i] }

// RepresentativeWeight sums the balances of every account whose chosen
// representative is rep, per spec.md §3.
func (s *Snapshot) RepresentativeWeight(rep PubKey) *uint256.Int {
	total := new(uint256.Int)
	for _, a := range s.byIndex {
		if a.Representative == rep {
			total.Add(total, a.Balance)
		}
	}
	return total
}

// PrincipalRepresentatives returns the set of representatives whose
// weight exceeds threshold at this snapshot, sorted ascending by
// public-key byte order (the order the Schedule Engine requires before
// seeding its PRNG).
func (s *Snapshot) PrincipalRepresentatives(threshold *uint256.Int) []PubKey {
	weights := make(map[PubKey]*uint256.Int)
	for _, a := range s.byIndex {
		w, ok := weights[a.Representative]
		if !ok {
			w = new(uint256.Int)
			weights[a.Representative] = w
		}
		w.Add(w, a.Balance)
	}

	var principals []PubKey
	for rep, w := range weights {
		if w.Gt(threshold) {
			principals = append(principals, rep)
		}
	}
	sort.Slice(principals, func(i, j int) bool {
		return lessPubKey(principals[i], principals[j])
	})
	return principals
}

// TotalWeight sums the weight of every representative in reps.
func (s *Snapshot) TotalWeight(reps []PubKey) *uint256.Int {
	total := new(uint256.Int)
	for _, r := range reps {
		total.Add(total, s.RepresentativeWeight(r))
	}
	return total
}

func lessPubKey(a, b PubKey) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
