// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim provides an in-process EtherCAT master for tests and
// demonstrations. Simulated slaves expose a CoE object dictionary
// synthesized from their PDO layout, walk the AL state machine as bus
// cycles are pumped, and exchange a packed process image.
package sim // import "github.com/freia-lab/e3-ecat2/sim"

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/pdi"
)

// SlaveConfig describes one simulated slave.
type SlaveConfig struct {
	ID  pdi.SlaveID
	Out []coe.Pdo // output PDOs, advertised via 0x1C12
	In  []coe.Pdo // input PDOs, advertised via 0x1C13

	// Objects holds extra raw dictionary objects, merged over the
	// entries synthesized from Out and In. Useful to present odd
	// reply widths or vendor objects.
	Objects map[coe.ObjectRef][]byte

	// Latency is the number of completion polls an SDO upload stays
	// pending before its reply arrives. Zero completes immediately.
	Latency int
}

// Master is an in-process implementation of master.Master.
type Master struct {
	mu     sync.Mutex
	slaves map[pdi.SlaveID]*Slave
	dom    *Domain
	active bool
	cycles int
}

func New(cfgs ...SlaveConfig) *Master {
	m := &Master{
		slaves: make(map[pdi.SlaveID]*Slave, len(cfgs)),
		dom:    &Domain{},
	}
	for _, cfg := range cfgs {
		m.slaves[cfg.ID] = newSlave(cfg)
	}
	return m
}

func (m *Master) Slave(id pdi.SlaveID) (master.Slave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slv, ok := m.slaves[id]
	if !ok {
		return nil, fmt.Errorf("sim: no slave with identity %v", id)
	}
	return slv, nil
}

func (m *Master) Domain() master.Domain { return m.dom }

// Cycle pumps one bus cycle: every slave advances its AL state
// machine and refreshes its input bytes in the process image.
func (m *Master) Cycle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
	for _, slv := range m.slaves {
		slv.cycle(m.active)
		if m.active {
			slv.refresh(m.dom)
		}
	}
	return nil
}

// Activate freezes the registration list, assigns packed byte offsets
// in registration order and allocates the process image.
func (m *Master) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return fmt.Errorf("sim: master already active")
	}
	m.dom.activate()
	m.active = true
	return nil
}

// Domain is the simulated process-data domain.
type Domain struct {
	mu     sync.Mutex
	regs   []pdi.Registration
	offs   []pdi.Offset
	image  []byte
	active bool
}

func (d *Domain) Register(regs []pdi.Registration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return fmt.Errorf("sim: domain already active")
	}
	d.regs = append(d.regs, regs...)
	return nil
}

func (d *Domain) Offsets() ([]pdi.Offset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil, fmt.Errorf("sim: domain not active")
	}
	offs := make([]pdi.Offset, len(d.offs))
	copy(offs, d.offs)
	return offs, nil
}

func (d *Domain) Data() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.image
}

func (d *Domain) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.image)
}

func (d *Domain) activate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offs = make([]pdi.Offset, len(d.regs))
	for i := range d.offs {
		d.offs[i].Byte = uint32(i)
	}
	d.image = make([]byte, len(d.regs))
	d.active = true
}

// Slave is one simulated slave.
type Slave struct {
	mu      sync.Mutex
	id      pdi.SlaveID
	dict    map[coe.ObjectRef][]byte
	latency int
	state   master.State
	cycles  int
	slots   [4]pdi.SyncSlot
	cfgd    bool

	inputs map[coe.ObjectRef]uint8 // live values of input objects
}

func newSlave(cfg SlaveConfig) *Slave {
	slv := &Slave{
		id:      cfg.ID,
		dict:    make(map[coe.ObjectRef][]byte),
		latency: cfg.Latency,
		state:   master.Init,
		inputs:  make(map[coe.ObjectRef]uint8),
	}
	slv.seed(coe.RxPdoAssign, cfg.Out)
	slv.seed(coe.TxPdoAssign, cfg.In)
	for ref, data := range cfg.Objects {
		slv.dict[ref] = data
	}
	return slv
}

// seed writes the assignment object and every mapping object of one
// direction into the dictionary.
func (slv *Slave) seed(assign uint16, pdos []coe.Pdo) {
	slv.dict[coe.ObjectRef{Index: assign}] = []byte{uint8(len(pdos))}
	for i, pdo := range pdos {
		idx := make([]byte, 2)
		binary.LittleEndian.PutUint16(idx, pdo.Index)
		slv.dict[coe.ObjectRef{Index: assign, Sub: uint8(i + 1)}] = idx

		slv.dict[coe.ObjectRef{Index: pdo.Index}] = []byte{uint8(len(pdo.Entries))}
		for k, e := range pdo.Entries {
			word := make([]byte, 4)
			binary.LittleEndian.PutUint32(word, coe.EncodeMapping(e))
			slv.dict[coe.ObjectRef{Index: pdo.Index, Sub: uint8(k + 1)}] = word
		}
	}
}

func (slv *Slave) Upload(ref coe.ObjectRef) (coe.Request, error) {
	slv.mu.Lock()
	defer slv.mu.Unlock()
	if slv.state == master.Init {
		return nil, fmt.Errorf("sim: slave %v has no mailbox in INIT", slv.id)
	}
	data, ok := slv.dict[ref]
	if !ok {
		return nil, fmt.Errorf("sim: slave %v has no object %v", slv.id, ref)
	}
	return &request{data: data, left: slv.latency}, nil
}

func (slv *Slave) ConfigureSync(slots [4]pdi.SyncSlot) error {
	slv.mu.Lock()
	defer slv.mu.Unlock()
	if slv.state != master.PreOp {
		return fmt.Errorf("sim: slave %v not in PREOP (state=%v)", slv.id, slv.state)
	}
	slv.slots = slots
	slv.cfgd = true
	return nil
}

func (slv *Slave) State() (master.State, error) {
	slv.mu.Lock()
	defer slv.mu.Unlock()
	return slv.state, nil
}

// SetInput updates the live value of one mapped input object. The new
// value reaches the process image on the next bus cycle.
func (slv *Slave) SetInput(ref coe.ObjectRef, v uint8) {
	slv.mu.Lock()
	defer slv.mu.Unlock()
	slv.inputs[ref] = v
}

// cycle advances the AL state machine: INIT to PREOP after the mailbox
// warm-up, then PREOP to SAFEOP to OP once the master is active.
func (slv *Slave) cycle(active bool) {
	slv.mu.Lock()
	defer slv.mu.Unlock()
	slv.cycles++
	switch slv.state {
	case master.Init:
		if slv.cycles >= 2 {
			slv.state = master.PreOp
		}
	case master.PreOp:
		if active && slv.cfgd {
			slv.state = master.SafeOp
		}
	case master.SafeOp:
		slv.state = master.Op
	}
}

// refresh copies the live input values into the process image at the
// offsets assigned to this slave's input registrations.
func (slv *Slave) refresh(dom *Domain) {
	slv.mu.Lock()
	defer slv.mu.Unlock()
	dom.mu.Lock()
	defer dom.mu.Unlock()
	for i, reg := range dom.regs {
		if reg.Slave != slv.id {
			continue
		}
		if v, ok := slv.inputs[reg.Object]; ok {
			dom.image[dom.offs[i].Byte] = v
		}
	}
}

type request struct {
	data []byte
	left int
}

func (r *request) Done() bool {
	if r.left > 0 {
		r.left--
		return false
	}
	return true
}

func (r *request) Data() []byte { return r.data }
