// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdi

import "fmt"

// Violation is one packing-invariant failure found by VerifyPacking.
// Index is the registration index, or -1 for whole-domain checks.
type Violation struct {
	Index int
	Desc  string
}

func (v Violation) String() string {
	if v.Index < 0 {
		return v.Desc
	}
	return fmt.Sprintf("entry %d: %s", v.Index, v.Desc)
}

// VerifyPacking checks that a bound layout obeys the packing expected
// when every mapped entry is 8 bits wide: zero bit offsets, first
// entry at byte 0, consecutive bytes thereafter, and a domain size
// equal to the registration count. All violations are reported, not
// just the first.
func VerifyPacking(l *Layout, domainSize int) ([]Violation, error) {
	if !l.Bound() {
		return nil, ErrNotBound
	}

	var vs []Violation
	for i := range l.offs {
		off := l.offs[i]
		if off.Bit != 0 {
			vs = append(vs, Violation{
				Index: i,
				Desc:  fmt.Sprintf("non-zero bit position %d", off.Bit),
			})
		}
		// fully packed 8-bit entries sit at byte i: entry 0 at 0,
		// each later entry one past its predecessor. Checking the
		// absolute position keeps one misplaced entry from also
		// flagging its innocent successor.
		switch {
		case i == 0:
			if off.Byte != 0 {
				vs = append(vs, Violation{
					Index: i,
					Desc:  fmt.Sprintf("first offset not zero (got=%d)", off.Byte),
				})
			}
		default:
			if off.Byte != uint32(i) {
				vs = append(vs, Violation{
					Index: i,
					Desc:  fmt.Sprintf("offset jump (got=%d, want=%d)", off.Byte, i),
				})
			}
		}
	}

	if domainSize != len(l.offs) {
		vs = append(vs, Violation{
			Index: -1,
			Desc: fmt.Sprintf(
				"domain size %d != registration count %d",
				domainSize, len(l.offs),
			),
		})
	}
	return vs, nil
}
