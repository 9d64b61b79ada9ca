// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"fmt"

	"github.com/freia-lab/e3-ecat2/pdi"
)

// Slave is one row of the slave inventory.
type Slave struct {
	ID          uint32
	Name        string
	Alias       uint16
	Position    uint16
	VendorID    uint32
	ProductCode uint32
	OutSize     int32 // sm2 process-data bytes
	InSize      int32 // sm3 process-data bytes
}

// SlaveID builds the bus identity of the slave.
func (slv Slave) SlaveID() pdi.SlaveID {
	return pdi.SlaveID{
		Alias:    slv.Alias,
		Position: slv.Position,
		Vendor:   slv.VendorID,
		Product:  slv.ProductCode,
	}
}

// Field is one row of a field-set definition.
type Field struct {
	PrimaryID uint32
	Slave     string
	Name      string
	Offset    int32
	Type      string // u8, u16 or u32
}

// PdiField converts the row into the form the resolver consumes.
func (f Field) PdiField() (pdi.Field, error) {
	var width int
	switch f.Type {
	case "u8":
		width = 1
	case "u16":
		width = 2
	case "u32":
		width = 4
	default:
		return pdi.Field{}, fmt.Errorf("conddb: field %q has invalid type %q", f.Name, f.Type)
	}
	return pdi.Field{
		Name:   f.Name,
		Offset: int(f.Offset),
		Width:  width,
	}, nil
}
