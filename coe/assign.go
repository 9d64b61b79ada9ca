// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coe

import (
	"context"
	"fmt"
)

// ReadAssignment reads a PDO assignment object (0x1C12 or 0x1C13):
// subindex 0 holds the PDO count, subindices 1..n the assigned PDO
// indices. The returned slice preserves the dictionary order exactly.
func ReadAssignment(ctx context.Context, rd *Reader, index uint16) ([]uint16, error) {
	cnt, err := rd.ReadCount(ctx, ObjectRef{Index: index})
	if err != nil {
		return nil, fmt.Errorf("coe: could not read PDO count at 0x%04x:00: %w", index, err)
	}
	switch {
	case cnt == 0:
		return nil, fmt.Errorf("coe: 0x%04x:00 declares 0 PDOs: %w", index, ErrNoAssignment)
	case cnt > MaxPdoAssign:
		return nil, fmt.Errorf(
			"coe: 0x%04x:00 declares %d PDOs (max=%d): %w",
			index, cnt, MaxPdoAssign, ErrTooManyPdos,
		)
	}

	pdos := make([]uint16, cnt)
	for i := range pdos {
		ref := ObjectRef{Index: index, Sub: uint8(i + 1)}
		v, err := rd.ReadPdoIndex(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("coe: could not read PDO index at %v: %w", ref, err)
		}
		pdos[i] = v
	}
	return pdos, nil
}

// ReadMapping reads a PDO mapping object: subindex 0 holds the entry
// count, subindices 1..n one 32-bit mapping word each.
func ReadMapping(ctx context.Context, rd *Reader, pdo uint16) (Pdo, error) {
	cnt, err := rd.ReadCount(ctx, ObjectRef{Index: pdo})
	if err != nil {
		return Pdo{}, fmt.Errorf("coe: could not read entry count at 0x%04x:00: %w", pdo, err)
	}
	if cnt == 0 {
		return Pdo{}, fmt.Errorf("coe: 0x%04x declares 0 entries: %w", pdo, ErrEmptyMapping)
	}

	out := Pdo{
		Index:   pdo,
		Entries: make([]Entry, cnt),
	}
	for i := range out.Entries {
		ref := ObjectRef{Index: pdo, Sub: uint8(i + 1)}
		word, err := rd.ReadMappingWord(ctx, ref)
		if err != nil {
			return Pdo{}, fmt.Errorf("coe: could not read mapping word at %v: %w", ref, err)
		}
		out.Entries[i] = DecodeMapping(word)
	}
	return out, nil
}

// Discover reads the full dynamic PDO layout of a slave: the output
// (0x1C12) and input (0x1C13) assignments and the mapping of every
// assigned PDO, in assignment order.
func Discover(ctx context.Context, rd *Reader) (out, in []Pdo, err error) {
	out, err = readDirection(ctx, rd, RxPdoAssign)
	if err != nil {
		return nil, nil, err
	}
	in, err = readDirection(ctx, rd, TxPdoAssign)
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

func readDirection(ctx context.Context, rd *Reader, assign uint16) ([]Pdo, error) {
	idx, err := ReadAssignment(ctx, rd, assign)
	if err != nil {
		return nil, err
	}
	pdos := make([]Pdo, len(idx))
	for i, pi := range idx {
		pdos[i], err = ReadMapping(ctx, rd, pi)
		if err != nil {
			return nil, err
		}
	}
	return pdos, nil
}
