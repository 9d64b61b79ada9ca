// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/sim"
)

func TestProcess(t *testing.T) {
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
	hnd.(*sim.Slave).SetInput(coe.ObjectRef{Index: 0x6000, Sub: 1}, 0xab)

	buf := new(bytes.Buffer)
	err = process(buf, cfg, slv, mst, 2, 1*time.Millisecond)
	if err != nil {
		t.Fatalf("could not dump process image: %+v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"=== cycle 1 (296 bytes) ===",
		"=== cycle 2 (296 bytes) ===",
		// first input byte sits at offset 62 (0x3e).
		"00000030  00 00 00 00 00 00 00 00  00 00 00 00 00 00 ab 00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing output line %q in:\n%s", want, got)
		}
	}
}
