// Package bankhash computes the state-root commitment: a Merkle root
// over all accounts ordered by insertion index, per spec.md §3's DATA
// MODEL. The recipe (fixed-width field encoding, BLAKE hashing,
// zero-pad on odd rows) is adapted from the teacher's
// ComputeAccountsDeltaHash/CombineBankHash, upgraded from SHA-256 to
// BLAKE3 per spec.md §6, and from the original implementation's
// pairwise merkle_root construction.
package bankhash

import (
	"encoding/binary"

	"consensuscore/accounts"
	"consensuscore/crypto"
)

// leafHash encodes a single account as pubkey(32) | balance(32 BE) |
// representative(32) and hashes it, giving each account a stable leaf
// position independent of the others.
func leafHash(a *accounts.Account) crypto.Hash {
	buf := make([]byte, 0, 32+32+32)
	buf = append(buf, a.PubKey[:]...)

	balBytes := a.Balance.Bytes32()
	buf = append(buf, balBytes[:]...)
	buf = append(buf, a.Representative[:]...)
	return crypto.Sum(buf)
}

// StateRoot computes the Merkle root of every account in snapshot,
// ordered by account index (snapshot's insertion order), per spec.md's
// "Merkle root of all accounts ordered by index".
func StateRoot(snapshot *accounts.Snapshot) crypto.Hash {
	n := snapshot.Len()
	if n == 0 {
		return crypto.ZeroHash
	}
	leaves := make([]crypto.Hash, n)
	for i := 0; i < n; i++ {
		leaves[i] = leafHash(snapshot.AccountAt(i))
	}
	return crypto.MerkleRoot(leaves)
}

// DeltaHash hashes a set of accounts touched by one block, in ascending
// index order, for incremental bank-hash combination without rehashing
// the whole account table. Mirrors ComputeAccountsDeltaHash's
// sort-then-fixed-encode-then-hash shape.
func DeltaHash(touched []*accounts.Account) crypto.Hash {
	if len(touched) == 0 {
		return crypto.ZeroHash
	}
	sorted := make([]*accounts.Account, len(touched))
	copy(sorted, touched)
	sortByIndex(sorted)

	buf := make([]byte, 8)
	chunks := make([][]byte, 0, len(sorted)*3)
	for _, a := range sorted {
		binary.BigEndian.PutUint64(buf, a.Index)
		chunks = append(chunks, append([]byte{}, buf...), a.PubKey[:])
		bal := a.Balance.Bytes32()
		chunks = append(chunks, bal[:])
	}
	return crypto.SumMany(chunks...)
}

// CombineBankHash folds a delta hash into the previous bank hash:
// new = BLAKE3(prev || delta). If prev is the zero hash (genesis),
// returns delta unchanged.
func CombineBankHash(prev, delta crypto.Hash) crypto.Hash {
	if prev == crypto.ZeroHash {
		return delta
	}
	return crypto.SumMany(prev[:], delta[:])
}

func sortByIndex(accs []*accounts.Account) {
	for i := 1; i < len(accs); i++ {
		for j := i; j > 0 && accs[j-1].Index > accs[j].Index; j-- {
			accs[j-1], accs[j] = accs[j], accs[j-1]
		}
	}
}
