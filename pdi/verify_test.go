// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdi

import (
	"testing"

	"github.com/freia-lab/e3-ecat2/coe"
)

func verifyLayout(t *testing.T, offs []Offset) *Layout {
	t.Helper()
	layout, err := BuildRegistrations(testSlave,
		[]coe.Pdo{bytePdo(0x1600, 0x7000, 4)},
		[]coe.Pdo{bytePdo(0x1A00, 0x6000, len(offs)-4)},
	)
	if err != nil {
		t.Fatalf("could not build registrations: %+v", err)
	}
	if err := layout.Bind(offs); err != nil {
		t.Fatalf("could not bind offsets: %+v", err)
	}
	return layout
}

func TestVerifyPackingClean(t *testing.T) {
	layout := verifyLayout(t, packedOffsets(10))
	vs, err := VerifyPacking(layout, 10)
	if err != nil {
		t.Fatalf("could not verify packing: %+v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("unexpected violations: %v", vs)
	}
}

func TestVerifyPackingOffsetJump(t *testing.T) {
	offs := packedOffsets(10)
	offs[5].Byte = 99

	layout := verifyLayout(t, offs)
	vs, err := VerifyPacking(layout, 10)
	if err != nil {
		t.Fatalf("could not verify packing: %+v", err)
	}
	// one misplaced entry yields exactly one violation.
	if len(vs) != 1 {
		t.Fatalf("invalid violation count: got=%d, want=1 (%v)", len(vs), vs)
	}
	if vs[0].Index != 5 {
		t.Fatalf("invalid violation index: got=%d, want=5", vs[0].Index)
	}
}

func TestVerifyPackingFirstNotZero(t *testing.T) {
	offs := packedOffsets(6)
	for i := range offs {
		offs[i].Byte++
	}

	layout := verifyLayout(t, offs)
	vs, err := VerifyPacking(layout, 6)
	if err != nil {
		t.Fatalf("could not verify packing: %+v", err)
	}
	// every shifted entry is off its packed position.
	if len(vs) != 6 {
		t.Fatalf("invalid violation count: got=%d, want=6 (%v)", len(vs), vs)
	}
	if vs[0].Index != 0 {
		t.Fatalf("invalid first violation index: got=%d, want=0", vs[0].Index)
	}
}

func TestVerifyPackingBitOffset(t *testing.T) {
	offs := packedOffsets(8)
	offs[3].Bit = 4

	layout := verifyLayout(t, offs)
	vs, err := VerifyPacking(layout, 8)
	if err != nil {
		t.Fatalf("could not verify packing: %+v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("invalid violation count: got=%d, want=1 (%v)", len(vs), vs)
	}
	if vs[0].Index != 3 {
		t.Fatalf("invalid violation index: got=%d, want=3", vs[0].Index)
	}
}

func TestVerifyPackingDomainSize(t *testing.T) {
	layout := verifyLayout(t, packedOffsets(10))
	vs, err := VerifyPacking(layout, 12)
	if err != nil {
		t.Fatalf("could not verify packing: %+v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("invalid violation count: got=%d, want=1 (%v)", len(vs), vs)
	}
	if vs[0].Index != -1 {
		t.Fatalf("invalid violation index: got=%d, want=-1", vs[0].Index)
	}
}

func TestVerifyPackingUnbound(t *testing.T) {
	layout, err := BuildRegistrations(testSlave, nil, []coe.Pdo{bytePdo(0x1A00, 0x6000, 2)})
	if err != nil {
		t.Fatalf("could not build registrations: %+v", err)
	}
	if _, err := VerifyPacking(layout, 2); err != ErrNotBound {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrNotBound)
	}
}
