// Package store persists the finalized block sequence and the account
// table committed by each finalized block's state root, the only
// durable state the core requires (spec.md §6: the unfinalized tree
// and vote index are reconstructible by replay and need not be
// durable). Keying and the provider shape follow the teacher's
// db.LevelDBProvider.
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"consensuscore/accounts"
	"consensuscore/block"
	"consensuscore/bankhash"
	"consensuscore/crypto"
	"consensuscore/jsonx"

	conserr "consensuscore/errors"
)

const (
	prefixBlockBySlot = "b/"
	prefixAccount     = "a/"
	keyFinalizedHead  = "meta/finalized_head"
)

// Store is a LevelDB-backed persistence layer for finalized state.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the LevelDB store at directory.
func Open(directory string) (*Store, error) {
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", directory, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type blockRecord struct {
	Author    [32]byte
	Slot      uint64
	ParentHash crypto.Hash
	Payload   []byte
	StateRoot crypto.Hash
	Signature []byte
	Hash      crypto.Hash
}

func blockKey(slot uint64) []byte {
	buf := make([]byte, len(prefixBlockBySlot)+8)
	copy(buf, prefixBlockBySlot)
	binary.BigEndian.PutUint64(buf[len(prefixBlockBySlot):], slot)
	return buf
}

// PutFinalizedBlock persists a finalized block, keyed by slot for
// sequential replay.
func (s *Store) PutFinalizedBlock(b *block.Block) error {
	rec := blockRecord{
		Author: b.Author, Slot: b.Slot, ParentHash: b.ParentHash,
		Payload: b.Payload, StateRoot: b.StateRoot, Signature: b.Signature, Hash: b.Hash,
	}
	data, err := jsonx.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal block at slot %d: %w", b.Slot, err)
	}
	return s.db.Put(blockKey(b.Slot), data, nil)
}

// FinalizedBlockAtSlot retrieves the finalized block at slot, or nil
// if none has been recorded.
func (s *Store) FinalizedBlockAtSlot(slot uint64) (*block.Block, error) {
	data, err := s.db.Get(blockKey(slot), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get block at slot %d: %w", slot, err)
	}

	var rec blockRecord
	if err := jsonx.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("store: unmarshal block at slot %d: %w", slot, err)
	}
	b := block.New(rec.Author, rec.Slot, rec.ParentHash, rec.Payload, rec.StateRoot)
	b.Signature = rec.Signature
	return b, nil
}

// FinalizedBlocksFrom streams every finalized block at slot >= from, in
// slot order, for replay-based reconstruction of the unfinalized tree
// and vote index after a restart.
func (s *Store) FinalizedBlocksFrom(from uint64) ([]*block.Block, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixBlockBySlot)), nil)
	defer iter.Release()

	var out []*block.Block
	for iter.Next() {
		var rec blockRecord
		if err := jsonx.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("store: unmarshal block during replay: %w", err)
		}
		if rec.Slot < from {
			continue
		}
		b := block.New(rec.Author, rec.Slot, rec.ParentHash, rec.Payload, rec.StateRoot)
		b.Signature = rec.Signature
		out = append(out, b)
	}
	return out, iter.Error()
}

func accountKey(stateRoot crypto.Hash, index uint64) []byte {
	buf := make([]byte, len(prefixAccount)+32+8)
	copy(buf, prefixAccount)
	copy(buf[len(prefixAccount):], stateRoot[:])
	binary.BigEndian.PutUint64(buf[len(prefixAccount)+32:], index)
	return buf
}

type accountRecord struct {
	Index          uint64
	PubKey         accounts.PubKey
	Balance        []byte
	Representative accounts.PubKey
}

// PutAccountTable persists the account table committed by stateRoot,
// one record per account, verifying the Merkle root matches before
// writing (spec.md §7's "state-root mismatch on a finalized block" is
// a Fatal condition, checked at the write boundary rather than left to
// be discovered on replay).
func (s *Store) PutAccountTable(stateRoot crypto.Hash, snapshot *accounts.Snapshot) error {
	if got := bankhash.StateRoot(snapshot); got != stateRoot {
		return conserr.Fatal(conserr.CodeStateRootMismatch, "store: state root mismatch: computed %x, expected %x", got, stateRoot)
	}

	batch := new(leveldb.Batch)
	for i := 0; i < snapshot.Len(); i++ {
		a := snapshot.AccountAt(i)
		rec := accountRecord{Index: a.Index, PubKey: a.PubKey, Balance: a.Balance.Bytes(), Representative: a.Representative}
		data, err := jsonx.Marshal(rec)
		if err != nil {
			return fmt.Errorf("store: marshal account %d: %w", a.Index, err)
		}
		batch.Put(accountKey(stateRoot, a.Index), data)
	}
	return s.db.Write(batch, nil)
}

func (s *Store) SetFinalizedHead(hash crypto.Hash) error {
	return s.db.Put([]byte(keyFinalizedHead), hash[:], nil)
}

func (s *Store) FinalizedHead() (crypto.Hash, bool, error) {
	data, err := s.db.Get([]byte(keyFinalizedHead), nil)
	if err == leveldb.ErrNotFound {
		return crypto.Hash{}, false, nil
	}
	if err != nil {
		return crypto.Hash{}, false, err
	}
	var h crypto.Hash
	copy(h[:], data)
	return h, true, nil
}
