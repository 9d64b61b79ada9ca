// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestListAndCompare(t *testing.T) {
	dir := t.TempDir()
	srv := &server{
		dir:    dir,
		freq:   1 * time.Second,
		alerts: make(map[string]int),
	}

	var (
		grow  = filepath.Join(dir, "pdi_run42_0.raw")
		stall = filepath.Join(dir, "pdi_run42_1.raw")
		other = filepath.Join(dir, "pdi_run07_0.raw")
	)
	for _, fname := range []string{grow, stall, other} {
		if err := os.WriteFile(fname, []byte("head"), 0644); err != nil {
			t.Fatalf("could not create %q: %+v", fname, err)
		}
	}

	ref, err := srv.list(dir, "run42")
	if err != nil {
		t.Fatalf("could not list files: %+v", err)
	}
	if got, want := len(ref), 2; got != want {
		t.Fatalf("invalid file count: got=%d, want=%d", got, want)
	}
	if _, ok := ref[other]; ok {
		t.Fatalf("file %q outside the run was listed", other)
	}

	if err := os.WriteFile(grow, []byte("head+more"), 0644); err != nil {
		t.Fatalf("could not grow %q: %+v", grow, err)
	}

	chk, err := srv.list(dir, "run42")
	if err != nil {
		t.Fatalf("could not list files: %+v", err)
	}
	srv.compare(ref, chk)

	if got, want := srv.alerts[stall], 1; got != want {
		t.Errorf("invalid alert count for %q: got=%d, want=%d", stall, got, want)
	}
	if got := srv.alerts[grow]; got != 0 {
		t.Errorf("unexpected alert for growing file %q (n=%d)", grow, got)
	}
}

func TestCompareNewFile(t *testing.T) {
	srv := &server{alerts: make(map[string]int)}
	srv.compare(
		map[string]int64{},
		map[string]int64{"pdi_run42_0.raw": 128},
	)
	if len(srv.alerts) != 0 {
		t.Fatalf("unexpected alerts for a new file: %v", srv.alerts)
	}
}
