// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pdi models the process-data image of an EtherCAT domain:
// sync-manager layouts, the ordered registration of mapped entries,
// the runtime offsets assigned at activation, and the resolution of
// named application fields against those offsets.
package pdi // import "github.com/freia-lab/e3-ecat2/pdi"

import (
	"fmt"

	"github.com/freia-lab/e3-ecat2/coe"
)

// Direction of a sync-manager channel.
type Direction uint8

const (
	Output Direction = iota // master to slave
	Input                   // slave to master
)

func (dir Direction) String() string {
	switch dir {
	case Output:
		return "output"
	case Input:
		return "input"
	}
	return fmt.Sprintf("Direction(%d)", uint8(dir))
}

// SlaveID identifies one slave on the bus. It is passed explicitly to
// every operation that acts on a device; there is no ambient default.
type SlaveID struct {
	Alias    uint16
	Position uint16
	Vendor   uint32
	Product  uint32
}

func (id SlaveID) String() string {
	return fmt.Sprintf("alias=%d pos=%d vendor=0x%08x product=0x%08x",
		id.Alias, id.Position, id.Vendor, id.Product,
	)
}

// SyncSlot describes one sync-manager channel and the PDOs it carries.
type SyncSlot struct {
	Index    uint8
	Dir      Direction
	Watchdog bool
	Pdos     []coe.Pdo
}

// BuildSyncLayout arranges the discovered PDOs into the canonical
// four-slot configuration: slot 0 mailbox-out, slot 1 mailbox-in,
// slot 2 process-out, slot 3 process-in. PDO order within slots 2 and
// 3 is the discovery order and is reused verbatim by the registrar.
func BuildSyncLayout(out, in []coe.Pdo) [4]SyncSlot {
	return [4]SyncSlot{
		{Index: 0, Dir: Output},
		{Index: 1, Dir: Input},
		{Index: 2, Dir: Output, Watchdog: true, Pdos: out},
		{Index: 3, Dir: Input, Pdos: in},
	}
}
