// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/pdi"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/freia.json")
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}

	if got, want := uint32(cfg.Defaults.VendorID), uint32(0x6c); got != want {
		t.Errorf("invalid vendor: got=0x%x, want=0x%x", got, want)
	}
	if got, want := cfg.Defaults.MaxBytes, 250; got != want {
		t.Errorf("invalid budget: got=%d, want=%d", got, want)
	}

	slv, err := cfg.SlaveByName("slave0")
	if err != nil {
		t.Fatalf("could not get slave: %+v", err)
	}
	id := slv.ID(cfg.Defaults)
	want := pdi.SlaveID{Vendor: 0x6c, Product: 0xa72c}
	if id != want {
		t.Fatalf("invalid identity: got=%v, want=%v", id, want)
	}

	out := slv.SM2.Pdo()
	if got, want := out.Index, uint16(0x1600); got != want {
		t.Errorf("invalid sm2 PDO index: got=0x%04x, want=0x%04x", got, want)
	}
	if got, want := len(out.Entries), 62; got != want {
		t.Fatalf("invalid sm2 entry count: got=%d, want=%d", got, want)
	}
	if got, want := out.Entries[0], (coe.Entry{
		ObjectRef: coe.ObjectRef{Index: 0x7000, Sub: 1},
		Bits:      8,
	}); got != want {
		t.Errorf("invalid first sm2 entry: got=%v, want=%v", got, want)
	}
	if got, want := out.Entries[61].Sub, uint8(62); got != want {
		t.Errorf("invalid last sm2 subindex: got=%d, want=%d", got, want)
	}

	in := slv.SM3.Pdo()
	if got, want := len(in.Entries), 234; got != want {
		t.Fatalf("invalid sm3 entry count: got=%d, want=%d", got, want)
	}
}

func TestFieldsFor(t *testing.T) {
	cfg, err := Load("testdata/freia.json")
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}

	fields, err := cfg.FieldsFor("slave0")
	if err != nil {
		t.Fatalf("could not get fields: %+v", err)
	}
	want := []pdi.Field{
		{Name: "X", Offset: 10, Width: 2},
		{Name: "status", Offset: 0, Width: 1},
		{Name: "counter", Offset: 100, Width: 4},
	}
	if len(fields) != len(want) {
		t.Fatalf("invalid field count: got=%d, want=%d", len(fields), len(want))
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d: got=%v, want=%v", i, fields[i], want[i])
		}
	}

	none, err := cfg.FieldsFor("no-such-slave")
	if err != nil {
		t.Fatalf("could not get fields: %+v", err)
	}
	if none != nil {
		t.Fatalf("unexpected fields: %v", none)
	}
}

// loadString writes raw to a file and loads it.
func loadString(t *testing.T, raw string) (*Config, error) {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(fname, []byte(raw), 0644); err != nil {
		t.Fatalf("could not write config: %+v", err)
	}
	return Load(fname)
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "no-slaves",
			raw:  `{"defaults":{}, "slaves":[]}`,
			want: "no slaves",
		},
		{
			name: "unnamed-slave",
			raw:  `{"slaves":[{"alias":1}]}`,
			want: "has no name",
		},
		{
			name: "duplicate-name",
			raw:  `{"slaves":[{"name":"s"},{"name":"s"}]}`,
			want: "duplicate slave name",
		},
		{
			name: "over-budget",
			raw: `{"slaves":[{"name":"s",
				"sm3":{"pdo_index":"0x1a00","entry_index":"0x6000","size_bytes":300}}]}`,
			want: "exceed the 250-byte budget",
		},
		{
			name: "negative-size",
			raw: `{"slaves":[{"name":"s",
				"sm3":{"pdo_index":"0x1a00","entry_index":"0x6000","size_bytes":-1}}]}`,
			want: "negative size",
		},
		{
			name: "over-subindex-space",
			raw: `{"defaults":{"max_bytes_per_direction":1000},
				"slaves":[{"name":"s",
				"sm3":{"pdo_index":"0x1a00","entry_index":"0x6000","size_bytes":300}}]}`,
			want: "exceed the 255-entry subindex space",
		},
		{
			name: "negative-field-offset",
			raw: `{"slaves":[{"name":"s"}],
				"fields":{"s":{"sm3":[{"name":"X","offset":-4,"type":"u16"}]}}}`,
			want: "negative offset",
		},
		{
			name: "bad-field-type",
			raw: `{"slaves":[{"name":"s"}],
				"fields":{"s":{"sm3":[{"name":"X","offset":0,"type":"f64"}]}}}`,
			want: `invalid type "f64"`,
		},
		{
			name: "unknown-field-owner",
			raw: `{"slaves":[{"name":"s"}],
				"fields":{"other":{"sm3":[]}}}`,
			want: "unknown slave",
		},
		{
			name: "bad-hex",
			raw:  `{"slaves":[{"name":"s","vendor_id":"0xzz"}]}`,
			want: "invalid hex value",
		},
		{
			name: "unknown-key",
			raw:  `{"slaves":[{"name":"s","frequency":42}]}`,
			want: "unknown field",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadString(t, tc.raw)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("invalid error: got=%v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestDefaultBudget(t *testing.T) {
	cfg, err := loadString(t, `{"slaves":[{"name":"s"}]}`)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	if got, want := cfg.Defaults.MaxBytes, DefaultMaxBytes; got != want {
		t.Fatalf("invalid default budget: got=%d, want=%d", got, want)
	}
}
