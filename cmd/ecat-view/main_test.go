// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/pdi"
	"github.com/freia-lab/e3-ecat2/sim"
)

func TestRun(t *testing.T) {
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

	hnd, err := mst.Slave(slv.ID(cfg.Defaults))
	if err != nil {
		t.Fatalf("could not get slave: %+v", err)
	}
	dev := hnd.(*sim.Slave)
	dev.SetInput(coe.ObjectRef{Index: 0x6000, Sub: 11}, 0x34)
	dev.SetInput(coe.ObjectRef{Index: 0x6000, Sub: 12}, 0x12)
	dev.SetInput(coe.ObjectRef{Index: 0x6000, Sub: 1}, 0x01)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	buf := new(bytes.Buffer)
	err = run(ctx, buf, cfg, slv, mst, 10*time.Millisecond, 1*time.Millisecond)
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("could not run viewer: %+v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"X          = 0x1234",
		"status     = 0x01",
		"counter    = 0x00000000",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing output line %q in:\n%s", want, got)
		}
	}
}

func TestDisplayDecodeError(t *testing.T) {
	buf := new(bytes.Buffer)
	display(buf, []pdi.ResolvedField{
		{
			Field:   pdi.Field{Name: "far", Width: 1},
			Offsets: []uint32{100},
			Valid:   true,
		},
	}, make([]byte, 10))

	if !strings.Contains(buf.String(), "far        = ERR") {
		t.Fatalf("missing error line in:\n%s", buf.String())
	}
}
