// Package errors defines the error taxonomy the consensus core handles
// incoming messages with: Structural, Slashable, Transient, and Fatal.
package errors

import (
	"fmt"

	"consensuscore/jsonx"
)

// Class tags which of the four error classes an error belongs to.
type Class string

const (
	// ClassStructural errors (bad signature, bad parent, slot-ordering
	// violation) cause the message to be silently dropped.
	ClassStructural Class = "structural"
	// ClassSlashable errors carry retained evidence of a protocol
	// violation and trigger a Slash event.
	ClassSlashable Class = "slashable"
	// ClassTransient errors (unknown parent, future slot) are held and
	// retried on relevant state change.
	ClassTransient Class = "transient"
	// ClassFatal errors (state-root mismatch on a finalized block, disk
	// corruption) halt the node rather than risk double-finalization.
	ClassFatal Class = "fatal"
)

// Code identifies the specific condition within a Class.
type Code string

const (
	CodeUnknownParent     Code = "unknown_parent"
	CodeBadSignature      Code = "bad_signature"
	CodeWrongLeader       Code = "wrong_leader"
	CodeNonIncreasingSlot Code = "non_increasing_slot"
	CodeDuplicateSlot     Code = "duplicate_slot"   // S1
	CodeDuplicateTgt      Code = "duplicate_target"  // S2
	CodeOverrideAtt       Code = "override_attempt"  // S3
	CodeFutureSlot        Code = "future_slot"
	CodeStateRootMismatch Code = "state_root_mismatch"
	CodeDiskCorruption    Code = "disk_corruption"
)

// ConsensusError is a typed, JSON-renderable error carrying its class
// and code, modeled on the teacher's NetworkError.
type ConsensusError struct {
	Class   Class  `json:"class"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *ConsensusError) Error() string {
	data, _ := jsonx.Marshal(e)
	return string(data)
}

// New builds a ConsensusError.
func New(class Class, code Code, format string, args ...interface{}) *ConsensusError {
	return &ConsensusError{Class: class, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsClass reports whether err is a *ConsensusError of the given class.
func IsClass(err error, class Class) bool {
	ce, ok := err.(*ConsensusError)
	return ok && ce.Class == class
}

func Structural(code Code, format string, args ...interface{}) *ConsensusError {
	return New(ClassStructural, code, format, args...)
}

func Slashable(code Code, format string, args ...interface{}) *ConsensusError {
	return New(ClassSlashable, code, format, args...)
}

func Transient(code Code, format string, args ...interface{}) *ConsensusError {
	return New(ClassTransient, code, format, args...)
}

func Fatal(code Code, format string, args ...interface{}) *ConsensusError {
	return New(ClassFatal, code, format, args...)
}
