// Package wire implements the fixed-width binary codec for the four
// message kinds spec.md §6 frames on UDP: Block, Vote, ShredNote, and
// opaque Telemetry. Field offsets are explicit, mirroring the
// teacher's own Shred.Encode/DecodeShred rather than reflection or a
// schema compiler.
package wire

import (
	"encoding/binary"
	"fmt"

	"consensuscore/block"
	"consensuscore/consensus"
	"consensuscore/crypto"
)

// EncodeBlock packs author(32) | slot(u64) | parent_hash(32) |
// payload_len(u32) | payload | state_root(32) | signature(64).
func EncodeBlock(b *block.Block) []byte {
	size := 32 + 8 + 32 + 4 + len(b.Payload) + 32 + 64
	buf := make([]byte, size)
	offset := 0

	copy(buf[offset:offset+32], b.Author[:])
	offset += 32

	binary.BigEndian.PutUint64(buf[offset:offset+8], b.Slot)
	offset += 8

	copy(buf[offset:offset+32], b.ParentHash[:])
	offset += 32

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(b.Payload)))
	offset += 4
	copy(buf[offset:offset+len(b.Payload)], b.Payload)
	offset += len(b.Payload)

	copy(buf[offset:offset+32], b.StateRoot[:])
	offset += 32

	copy(buf[offset:offset+64], b.Signature)
	offset += 64

	return buf
}

// DecodeBlock is the inverse of EncodeBlock. The hash is recomputed
// from the canonical body, not trusted from the wire.
func DecodeBlock(buf []byte) (*block.Block, error) {
	const minSize = 32 + 8 + 32 + 4 + 32 + 64
	if len(buf) < minSize {
		return nil, fmt.Errorf("wire: block too short: %d bytes", len(buf))
	}

	offset := 0
	var author [32]byte
	copy(author[:], buf[offset:offset+32])
	offset += 32

	slot := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8

	var parentHash crypto.Hash
	copy(parentHash[:], buf[offset:offset+32])
	offset += 32

	payloadLen := binary.BigEndian.Uint32(buf[offset : offset+4])
	offset += 4
	if offset+int(payloadLen)+32+64 > len(buf) {
		return nil, fmt.Errorf("wire: block payload_len %d overruns buffer", payloadLen)
	}
	payload := make([]byte, payloadLen)
	copy(payload, buf[offset:offset+int(payloadLen)])
	offset += int(payloadLen)

	var stateRoot crypto.Hash
	copy(stateRoot[:], buf[offset:offset+32])
	offset += 32

	signature := make([]byte, 64)
	copy(signature, buf[offset:offset+64])

	b := block.New(author, slot, parentHash, payload, stateRoot)
	b.Signature = signature
	return b, nil
}

// EncodeVote packs author(32) | source_hash(32) | source_slot(u64) |
// target_hash(32) | target_slot(u64) | signature(64).
func EncodeVote(v *consensus.Vote) []byte {
	buf := make([]byte, 32+32+8+32+8+64)
	offset := 0

	copy(buf[offset:offset+32], v.Author[:])
	offset += 32
	copy(buf[offset:offset+32], v.Source.BlockHash[:])
	offset += 32
	binary.BigEndian.PutUint64(buf[offset:offset+8], v.Source.Slot)
	offset += 8
	copy(buf[offset:offset+32], v.Target.BlockHash[:])
	offset += 32
	binary.BigEndian.PutUint64(buf[offset:offset+8], v.Target.Slot)
	offset += 8
	copy(buf[offset:offset+64], v.Signature)

	return buf
}

// DecodeVote is the inverse of EncodeVote.
func DecodeVote(buf []byte) (*consensus.Vote, error) {
	const size = 32 + 32 + 8 + 32 + 8 + 64
	if len(buf) != size {
		return nil, fmt.Errorf("wire: vote wrong size: %d bytes, want %d", len(buf), size)
	}

	offset := 0
	var author [32]byte
	copy(author[:], buf[offset:offset+32])
	offset += 32

	var sourceHash crypto.Hash
	copy(sourceHash[:], buf[offset:offset+32])
	offset += 32
	sourceSlot := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8

	var targetHash crypto.Hash
	copy(targetHash[:], buf[offset:offset+32])
	offset += 32
	targetSlot := binary.BigEndian.Uint64(buf[offset : offset+8])
	offset += 8

	signature := make([]byte, 64)
	copy(signature, buf[offset:offset+64])

	v := consensus.New(author, block.Pair{BlockHash: sourceHash, Slot: sourceSlot}, block.Pair{BlockHash: targetHash, Slot: targetSlot})
	v.Signature = signature
	return v, nil
}

// ShredNote fragments a large block body for transport, per spec.md
// §6: block_hash(32), shred_index(u16), total_shreds(u16), data(bytes).
type ShredNote struct {
	BlockHash   crypto.Hash
	ShredIndex  uint16
	TotalShreds uint16
	Data        []byte
}

func EncodeShredNote(s *ShredNote) []byte {
	buf := make([]byte, 32+2+2+len(s.Data))
	offset := 0

	copy(buf[offset:offset+32], s.BlockHash[:])
	offset += 32
	binary.BigEndian.PutUint16(buf[offset:offset+2], s.ShredIndex)
	offset += 2
	binary.BigEndian.PutUint16(buf[offset:offset+2], s.TotalShreds)
	offset += 2
	copy(buf[offset:], s.Data)

	return buf
}

func DecodeShredNote(buf []byte) (*ShredNote, error) {
	const minSize = 32 + 2 + 2
	if len(buf) < minSize {
		return nil, fmt.Errorf("wire: shred note too short: %d bytes", len(buf))
	}

	offset := 0
	var s ShredNote
	copy(s.BlockHash[:], buf[offset:offset+32])
	offset += 32
	s.ShredIndex = binary.BigEndian.Uint16(buf[offset : offset+2])
	offset += 2
	s.TotalShreds = binary.BigEndian.Uint16(buf[offset : offset+2])
	offset += 2
	s.Data = append([]byte{}, buf[offset:]...)

	return &s, nil
}

// Telemetry is opaque to this core per spec.md §6 — carried as a raw
// byte slice with no interpreted fields.
type Telemetry struct {
	Data []byte
}

func EncodeTelemetry(t *Telemetry) []byte {
	return append([]byte{}, t.Data...)
}

func DecodeTelemetry(buf []byte) *Telemetry {
	return &Telemetry{Data: append([]byte{}, buf...)}
}
