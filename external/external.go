// Package external declares the interfaces the consensus core consumes
// from collaborators it does not own (spec.md §6's "Interfaces
// consumed"): Bank, Directory, and Pools. None of these is implemented
// here — they are narrow contracts, one per collaborator, the way the
// teacher's own interfaces package separates Ledger from Broadcaster.
package external

import (
	"context"

	"consensuscore/accounts"
	"consensuscore/crypto"
)

// Bank is the externally-owned account ledger. The consensus core only
// ever reads balances and state roots through it and proposes mutations
// via queue/finish/revert; it never applies a mutation directly.
type Bank interface {
	QueueTransfer(ctx context.Context, from, to accounts.PubKey, amount uint64) (txID [32]byte, err error)
	FinishTransfer(ctx context.Context, txID [32]byte) error
	RevertTransfer(ctx context.Context, txID [32]byte) error
	FinalizeTransfer(ctx context.Context, txID [32]byte) error
	FinalizeChangeRep(ctx context.Context, account, newRep accounts.PubKey) error
	PushAccount(ctx context.Context, pub accounts.PubKey) (index uint64, err error)
	PopAccount(ctx context.Context, index uint64) error
	StateRoot(ctx context.Context) crypto.Hash
	SnapshotAt(ctx context.Context, stateRoot crypto.Hash) (*accounts.Snapshot, error)
}

// Directory resolves account public keys to their table index, the
// batched lookup spec.md §6 names, and records new key/index pairs.
type Directory interface {
	Retrieve(ctx context.Context, keys []accounts.PubKey) (indices []uint64, err error)
	TryInsert(ctx context.Context, key accounts.PubKey, index uint64) error
}

// Pools delivers the queued transactions, account-opens, and votes a
// newly leading Slot Driver should fold into its proposed block.
type Pools interface {
	TransactionList(ctx context.Context, slot uint64) ([]byte, error)
	OpenList(ctx context.Context, slot uint64) ([]byte, error)
	VoteList(ctx context.Context, slot uint64) ([]byte, error)
}
