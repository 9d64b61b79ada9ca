// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the static process-data configuration: slave
// identities, the expected PDO layout of both process directions and
// the named application fields to resolve against the runtime image.
package config // import "github.com/freia-lab/e3-ecat2/config"

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/pdi"
)

// DefaultMaxBytes is the per-direction process-data budget applied
// when the configuration does not override it.
const DefaultMaxBytes = 250

// maxPdoBytes bounds a static PDO declaration: entries are generated
// as consecutive 8-bit subindices starting at 1, so at most 255 fit.
const maxPdoBytes = 255

// Hex is a uint32 that unmarshals from a JSON "0x..." string (plain
// decimal strings and JSON numbers are accepted too).
type Hex uint32

func (h *Hex) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return fmt.Errorf("config: invalid hex value %q: %w", s, err)
		}
		*h = Hex(v)
		return nil
	}
	var v uint32
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*h = Hex(v)
	return nil
}

// Defaults are applied to every slave that does not override them.
type Defaults struct {
	VendorID    Hex `json:"vendor_id"`
	ProductCode Hex `json:"product_code"`
	MaxBytes    int `json:"max_bytes_per_direction"`
}

// StaticPdo declares one statically known PDO whose entries are
// consecutive 8-bit subindices 1..SizeBytes of a single object.
type StaticPdo struct {
	PdoIndex   Hex `json:"pdo_index"`
	EntryIndex Hex `json:"entry_index"`
	SizeBytes  int `json:"size_bytes"`
}

// Pdo expands the static declaration into a full PDO descriptor.
func (sp StaticPdo) Pdo() coe.Pdo {
	pdo := coe.Pdo{
		Index:   uint16(sp.PdoIndex),
		Entries: make([]coe.Entry, sp.SizeBytes),
	}
	for i := range pdo.Entries {
		pdo.Entries[i] = coe.Entry{
			ObjectRef: coe.ObjectRef{
				Index: uint16(sp.EntryIndex),
				Sub:   uint8(i + 1),
			},
			Bits: 8,
		}
	}
	return pdo
}

// Slave is the static description of one slave.
type Slave struct {
	Name        string    `json:"name"`
	Alias       uint16    `json:"alias"`
	Position    uint16    `json:"position"`
	VendorID    Hex       `json:"vendor_id"`
	ProductCode Hex       `json:"product_code"`
	SM2         StaticPdo `json:"sm2"` // outputs
	SM3         StaticPdo `json:"sm3"` // inputs
}

// ID builds the slave identity, filling vendor and product from the
// defaults when the slave does not set them.
func (s Slave) ID(def Defaults) pdi.SlaveID {
	id := pdi.SlaveID{
		Alias:    s.Alias,
		Position: s.Position,
		Vendor:   uint32(s.VendorID),
		Product:  uint32(s.ProductCode),
	}
	if id.Vendor == 0 {
		id.Vendor = uint32(def.VendorID)
	}
	if id.Product == 0 {
		id.Product = uint32(def.ProductCode)
	}
	return id
}

// Field is one named application field, declared against the input
// (sm3) sub-image of a slave.
type Field struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Type   string `json:"type"` // u8, u16 or u32
}

// Width returns the byte width of the field type.
func (f Field) Width() (int, error) {
	switch f.Type {
	case "u8":
		return 1, nil
	case "u16":
		return 2, nil
	case "u32":
		return 4, nil
	}
	return 0, fmt.Errorf("config: field %q has invalid type %q", f.Name, f.Type)
}

// FieldSet is the per-direction field list of one slave.
type FieldSet struct {
	SM3 []Field `json:"sm3"`
}

// Config is the full static configuration.
type Config struct {
	Defaults Defaults            `json:"defaults"`
	Slaves   []Slave             `json:"slaves"`
	Fields   map[string]FieldSet `json:"fields"`
}

// Load reads and validates a configuration file.
func Load(fname string) (*Config, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("config: could not open %q: %w", fname, err)
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: could not decode %q: %w", fname, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Defaults.MaxBytes == 0 {
		cfg.Defaults.MaxBytes = DefaultMaxBytes
	}
	if len(cfg.Slaves) == 0 {
		return fmt.Errorf("config: no slaves declared")
	}

	names := make(map[string]bool, len(cfg.Slaves))
	for i, slv := range cfg.Slaves {
		if slv.Name == "" {
			return fmt.Errorf("config: slave %d has no name", i)
		}
		if names[slv.Name] {
			return fmt.Errorf("config: duplicate slave name %q", slv.Name)
		}
		names[slv.Name] = true

		for _, dir := range []struct {
			name string
			pdo  StaticPdo
		}{
			{"sm2", slv.SM2},
			{"sm3", slv.SM3},
		} {
			pdo := dir.pdo
			switch {
			case pdo.SizeBytes < 0:
				return fmt.Errorf(
					"config: slave %q %s: negative size (%d bytes)",
					slv.Name, dir.name, pdo.SizeBytes,
				)
			case pdo.SizeBytes > cfg.Defaults.MaxBytes:
				return fmt.Errorf(
					"config: slave %q %s: %d bytes exceed the %d-byte budget",
					slv.Name, dir.name, pdo.SizeBytes, cfg.Defaults.MaxBytes,
				)
			case pdo.SizeBytes > maxPdoBytes:
				return fmt.Errorf(
					"config: slave %q %s: %d bytes exceed the %d-entry subindex space",
					slv.Name, dir.name, pdo.SizeBytes, maxPdoBytes,
				)
			}
		}
	}

	for name, fs := range cfg.Fields {
		if !names[name] {
			return fmt.Errorf("config: fields declared for unknown slave %q", name)
		}
		for _, f := range fs.SM3 {
			if _, err := f.Width(); err != nil {
				return err
			}
			if f.Offset < 0 {
				return fmt.Errorf(
					"config: field %q has negative offset %d",
					f.Name, f.Offset,
				)
			}
		}
	}
	return nil
}

// SlaveByName returns the named slave declaration.
func (cfg *Config) SlaveByName(name string) (Slave, error) {
	for _, slv := range cfg.Slaves {
		if slv.Name == name {
			return slv, nil
		}
	}
	return Slave{}, fmt.Errorf("config: no slave named %q", name)
}

// FieldsFor converts the sm3 field list of the named slave into the
// form the resolver consumes.
func (cfg *Config) FieldsFor(name string) ([]pdi.Field, error) {
	fs, ok := cfg.Fields[name]
	if !ok {
		return nil, nil
	}
	out := make([]pdi.Field, len(fs.SM3))
	for i, f := range fs.SM3 {
		w, err := f.Width()
		if err != nil {
			return nil, err
		}
		out[i] = pdi.Field{Name: f.Name, Offset: f.Offset, Width: w}
	}
	return out, nil
}
