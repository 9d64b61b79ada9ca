// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdi

import (
	"errors"
	"fmt"

	"github.com/freia-lab/e3-ecat2/coe"
)

var (
	ErrBound    = errors.New("pdi: layout already bound")
	ErrNotBound = errors.New("pdi: layout not bound")
)

// maxRegistrations guards against a corrupt dictionary driving the
// registration storage. Subindices are 8-bit and assignments are
// capped at 16 PDOs per direction, so a valid layout stays far below.
const maxRegistrations = 0xFFFF

// Offset is the runtime position of one registered entry inside the
// process image. It is unknown until activation completes.
type Offset struct {
	Byte uint32
	Bit  uint8
}

// Registration is one entry of the ordered list submitted to the
// external register-and-activate primitive. It carries no offset
// storage: offsets come back as a parallel slice, same length, same
// order, and are bound to the layout exactly once.
type Registration struct {
	Slave  SlaveID
	Object coe.ObjectRef
}

// Layout is the flattened process-data image of one slave: every
// mapped entry, outputs first then inputs, in PDO then entry order.
// A layout starts unbound; Bind fills the offsets once, after which
// the layout is read-only and safe for concurrent readers.
type Layout struct {
	regs  []Registration
	offs  []Offset
	rx    int // number of output-side registrations
	bound bool
}

// BuildRegistrations flattens the mapped entries of every output PDO
// (in order), then every input PDO (in order), into the registration
// list an activation primitive must consume.
func BuildRegistrations(id SlaveID, out, in []coe.Pdo) (*Layout, error) {
	total := 0
	for _, pdo := range out {
		total += len(pdo.Entries)
	}
	for _, pdo := range in {
		total += len(pdo.Entries)
	}
	if total > maxRegistrations {
		return nil, fmt.Errorf("pdi: too many mapped entries (%d, max=%d)", total, maxRegistrations)
	}

	l := &Layout{
		regs: make([]Registration, 0, total),
	}
	for _, pdo := range out {
		for _, e := range pdo.Entries {
			l.regs = append(l.regs, Registration{Slave: id, Object: e.ObjectRef})
		}
	}
	l.rx = len(l.regs)
	for _, pdo := range in {
		for _, e := range pdo.Entries {
			l.regs = append(l.regs, Registration{Slave: id, Object: e.ObjectRef})
		}
	}
	return l, nil
}

// Registrations returns the ordered registration list. Callers must
// not reorder it: offsets are matched back by position.
func (l *Layout) Registrations() []Registration { return l.regs }

// Len returns the total number of registered entries.
func (l *Layout) Len() int { return len(l.regs) }

// RxCount returns the number of output-side registrations; the first
// input entry is at that index.
func (l *Layout) RxCount() int { return l.rx }

// Bound reports whether offsets have been bound.
func (l *Layout) Bound() bool { return l.bound }

// Bind attaches the offsets returned by the activation primitive.
// The slice must be parallel to Registrations: same length, same
// order. Bind may be called exactly once.
func (l *Layout) Bind(offs []Offset) error {
	if l.bound {
		return ErrBound
	}
	if len(offs) != len(l.regs) {
		return fmt.Errorf(
			"pdi: offset count mismatch (got=%d, want=%d)",
			len(offs), len(l.regs),
		)
	}
	l.offs = make([]Offset, len(offs))
	copy(l.offs, offs)
	l.bound = true
	return nil
}

// Offset returns the runtime offset of registration i.
func (l *Layout) Offset(i int) (Offset, error) {
	if !l.bound {
		return Offset{}, ErrNotBound
	}
	if i < 0 || i >= len(l.offs) {
		return Offset{}, fmt.Errorf("pdi: registration index %d out of range [0,%d)", i, len(l.offs))
	}
	return l.offs[i], nil
}
