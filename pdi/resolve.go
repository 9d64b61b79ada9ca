// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdi

import "fmt"

// Field is a named, width-typed logical field declared by the
// application. Offset is a byte offset inside one sub-image (for
// input fields, relative to the first input entry).
type Field struct {
	Name   string
	Offset int
	Width  int // 1, 2 or 4 bytes
}

// ResolvedField maps a field onto concrete runtime byte offsets, one
// per field byte. Invalid fields keep Valid=false and empty offsets;
// they never abort resolution of the others.
type ResolvedField struct {
	Field
	Offsets []uint32
	Valid   bool
}

// Resolve maps fields onto the runtime offsets of the sub-image that
// starts at registration index base. The sub-image spans the
// registrations [base, layout.Len()); a field is valid only if it
// lies entirely inside that span.
func Resolve(fields []Field, layout *Layout, base int) ([]ResolvedField, error) {
	if !layout.Bound() {
		return nil, ErrNotBound
	}
	if base < 0 || base > layout.Len() {
		return nil, fmt.Errorf("pdi: sub-image base %d out of range [0,%d]", base, layout.Len())
	}

	size := layout.Len() - base
	out := make([]ResolvedField, len(fields))
	for i, f := range fields {
		out[i] = ResolvedField{Field: f}
		// f.Offset+f.Width could overflow for offsets near MaxInt.
		if f.Offset < 0 || f.Width <= 0 || f.Offset > size-f.Width {
			continue
		}
		offs := make([]uint32, f.Width)
		for k := range offs {
			off, err := layout.Offset(base + f.Offset + k)
			if err != nil {
				return nil, err
			}
			offs[k] = off.Byte
		}
		out[i].Offsets = offs
		out[i].Valid = true
	}
	return out, nil
}

// Decode composes the field value from the process image, little
// endian, truncated to the field width. The field must be valid.
func Decode(rf ResolvedField, image []byte) (uint32, error) {
	if !rf.Valid {
		return 0, fmt.Errorf("pdi: field %q is not resolved", rf.Name)
	}
	var v uint32
	for k, off := range rf.Offsets {
		if int(off) >= len(image) {
			return 0, fmt.Errorf(
				"pdi: field %q offset %d outside image (size=%d)",
				rf.Name, off, len(image),
			)
		}
		v |= uint32(image[off]) << (8 * k)
	}
	return v, nil
}
