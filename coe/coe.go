// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package coe provides read access to the CoE object dictionary of an
// EtherCAT slave: bounded-poll SDO uploads and the decoding of the PDO
// assignment (0x1C12/0x1C13) and PDO mapping (0x1600+/0x1A00+) objects
// into ordered PDO descriptors.
package coe // import "github.com/freia-lab/e3-ecat2/coe"

import (
	"errors"
	"fmt"
)

const (
	RxPdoAssign = 0x1C12 // outputs, master to slave
	TxPdoAssign = 0x1C13 // inputs, slave to master

	// MaxPdoAssign is the largest PDO count an assignment object may
	// declare. Larger counts are an error, never clamped.
	MaxPdoAssign = 16
)

var (
	ErrTimeout      = errors.New("coe: upload timeout")
	ErrSizeMismatch = errors.New("coe: reply size mismatch")
	ErrNoAssignment = errors.New("coe: empty PDO assignment")
	ErrEmptyMapping = errors.New("coe: empty PDO mapping")
	ErrTooManyPdos  = errors.New("coe: too many assigned PDOs")
)

// ObjectRef is an object-dictionary coordinate.
type ObjectRef struct {
	Index uint16
	Sub   uint8
}

func (ref ObjectRef) String() string {
	return fmt.Sprintf("0x%04x:%02x", ref.Index, ref.Sub)
}

// Entry is one application object mapped into a PDO.
type Entry struct {
	ObjectRef
	Bits uint8 // bit length of the mapped object
}

// Pdo is an ordered set of mapped entries exchanged cyclically.
// The entry order is the order in which runtime offsets are later
// assigned, so it must never be reordered.
type Pdo struct {
	Index   uint16
	Entries []Entry
}

// EncodeMapping packs an entry into the 32-bit CoE mapping word:
// object index in the low 16 bits, subindex in the next 8, bit length
// in the top 8.
func EncodeMapping(e Entry) uint32 {
	return uint32(e.Index) |
		uint32(e.Sub)<<16 |
		uint32(e.Bits)<<24
}

// DecodeMapping is the inverse of EncodeMapping.
func DecodeMapping(v uint32) Entry {
	return Entry{
		ObjectRef: ObjectRef{
			Index: uint16(v & 0xFFFF),
			Sub:   uint8(v >> 16),
		},
		Bits: uint8(v >> 24),
	}
}
