// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/sim"
)

func newTestReader(t *testing.T) *coe.Reader {
	t.Helper()
	cfg, err := config.Load("../ecat-cfg/testdata/freia.json")
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}

	slv := cfg.Slaves[0]
	mst := sim.New(sim.SlaveConfig{
		ID:  slv.ID(cfg.Defaults),
		Out: []coe.Pdo{slv.SM2.Pdo()},
		In:  []coe.Pdo{slv.SM3.Pdo()},
	})

	// pump the slave out of INIT so the mailbox is usable.
	for i := 0; i < 3; i++ {
		if err := mst.Cycle(); err != nil {
			t.Fatalf("could not run bus cycle: %+v", err)
		}
	}
	hnd, err := mst.Slave(slv.ID(cfg.Defaults))
	if err != nil {
		t.Fatalf("could not get slave: %+v", err)
	}
	st, err := hnd.State()
	if err != nil {
		t.Fatalf("could not read state: %+v", err)
	}
	if st != master.PreOp {
		t.Fatalf("invalid state: got=%v, want=%v", st, master.PreOp)
	}
	return coe.NewReader(hnd, coe.WithInterval(1*time.Microsecond))
}

func TestEval(t *testing.T) {
	rd := newTestReader(t)
	ctx := context.Background()

	for _, tc := range []struct {
		cmd  string
		want []string
	}{
		{
			cmd:  "count 0x1c13",
			want: []string{"0x1c13:00 = 1"},
		},
		{
			cmd:  "read 0x1c13:01",
			want: []string{"0x1c13:01 = "},
		},
		{
			cmd: "pdos",
			want: []string{
				"out: 0x1600 (62 entries)",
				"in:  0x1a00 (234 entries)",
			},
		},
		{
			cmd: "map 0x1a00",
			want: []string{
				"PDO 0x1a00: 234 entries",
				"[  0] 0x6000:01 (8 bits)",
				"[233] 0x6000:ea (8 bits)",
			},
		},
		{
			cmd:  "help",
			want: []string{"commands:"},
		},
	} {
		t.Run(tc.cmd, func(t *testing.T) {
			out, err := eval(ctx, rd, tc.cmd)
			if err != nil {
				t.Fatalf("could not eval %q: %+v", tc.cmd, err)
			}
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q in output:\n%s", want, out)
				}
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	rd := newTestReader(t)
	ctx := context.Background()

	for _, cmd := range []string{
		"frobnicate",
		"read",
		"read zzz",
		"read 0x9999:01",
		"count 0x9999",
		"map 0x9999",
	} {
		if _, err := eval(ctx, rd, cmd); err == nil {
			t.Errorf("%q: expected an error", cmd)
		}
	}
}

func TestParseRef(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want coe.ObjectRef
		err  bool
	}{
		{s: "0x1c13", want: coe.ObjectRef{Index: 0x1C13}},
		{s: "0x1c13:01", want: coe.ObjectRef{Index: 0x1C13, Sub: 1}},
		{s: "0x6000:ea", want: coe.ObjectRef{Index: 0x6000, Sub: 0xEA}},
		{s: "6000", want: coe.ObjectRef{Index: 6000}},
		{s: "zzz", err: true},
		{s: "0x1c13:zz", err: true},
		{s: "0x123456", err: true},
	} {
		got, err := parseRef(tc.s)
		if tc.err {
			if err == nil {
				t.Errorf("%q: expected an error", tc.s)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: could not parse: %+v", tc.s, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got=%v, want=%v", tc.s, got, tc.want)
		}
	}
}
