// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package master defines the seam between the process-data layers and
// an EtherCAT master driver, and a Session that drives one slave from
// mailbox bring-up to cyclic exchange over that seam.
package master // import "github.com/freia-lab/e3-ecat2/master"

import (
	"fmt"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/pdi"
)

// State is the application-layer state of a slave.
type State uint8

const (
	Unknown State = 0x00
	Init    State = 0x01
	PreOp   State = 0x02
	Boot    State = 0x03
	SafeOp  State = 0x04
	Op      State = 0x08
)

func (st State) String() string {
	switch st {
	case Init:
		return "INIT"
	case PreOp:
		return "PREOP"
	case Boot:
		return "BOOT"
	case SafeOp:
		return "SAFEOP"
	case Op:
		return "OP"
	case Unknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("State(0x%02x)", uint8(st))
}

// Master is the driver seam. Implementations wrap a real fieldbus
// stack or an in-process simulator.
type Master interface {
	// Slave returns a handle on the slave with the given identity.
	Slave(id pdi.SlaveID) (Slave, error)

	// Domain returns the process-data domain of this master.
	Domain() Domain

	// Cycle performs one bus cycle: receive, exchange, send. During
	// bring-up it also pumps the mailbox protocols.
	Cycle() error

	// Activate finalizes the configuration, allocates the process
	// image and makes the registered offsets available.
	Activate() error
}

// Slave is a handle on one configured slave.
type Slave interface {
	coe.Uploader

	// ConfigureSync programs the four sync-manager channels.
	ConfigureSync(slots [4]pdi.SyncSlot) error

	// State reports the slave's current application-layer state.
	State() (State, error)
}

// Domain is the process-data domain: registration of mapped entries
// before activation, offsets and image access after.
type Domain interface {
	// Register submits the ordered entry list. Must be called before
	// Activate; the offsets come back through Offsets in the same
	// order.
	Register(regs []pdi.Registration) error

	// Offsets returns the runtime offset of every registered entry,
	// parallel to the registration list. Only valid after Activate.
	Offsets() ([]pdi.Offset, error)

	// Data returns the live process image.
	Data() []byte

	// Size returns the byte size of the process image.
	Size() int
}
