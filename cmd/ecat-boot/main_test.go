// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// fakeSvc copies the system sleep binary under a unique name so the
// killall pass in run does not touch unrelated processes.
func fakeSvc(t *testing.T, dir string, i int) string {
	t.Helper()
	src, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("no sleep binary: %+v", err)
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("could not read %q: %+v", src, err)
	}
	dst := filepath.Join(dir, "ecat-fake-svc-"+strconv.Itoa(i))
	if err := os.WriteFile(dst, raw, 0755); err != nil {
		t.Fatalf("could not create test program: %+v", err)
	}
	return dst
}

func TestRun(t *testing.T) {
	bin := t.TempDir()
	svcs := make([]string, 2)
	for i := range svcs {
		svcs[i] = fakeSvc(t, bin, i)
	}

	for _, tc := range []struct {
		name string
		args string
		stop bool
	}{
		{
			name: "simple",
			args: "1",
		},
		{
			name: "simple-stop",
			args: "30",
			stop: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			list := []service{
				{name: svcs[0], args: []string{tc.args}},
				{name: svcs[1], args: []string{tc.args}},
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tc.stop {
				go func() {
					time.Sleep(1 * time.Second)
					cancel()
				}()
			}
			err := run(ctx, false, 1*time.Second, 1*time.Second, list, t.TempDir())
			if err != nil {
				t.Fatalf("could not run processes: %+v", err)
			}
		})
	}
}

func TestWaitReady(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not listen: %+v", err)
	}
	defer lis.Close()

	ctx := context.Background()
	if err := waitReady(ctx, lis.Addr().String(), 2*time.Second); err != nil {
		t.Fatalf("could not reach listening service: %+v", err)
	}

	addr := lis.Addr().String()
	lis.Close()
	if err := waitReady(ctx, addr, 300*time.Millisecond); err == nil {
		t.Fatalf("expected a timeout on a closed port")
	}

	done, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitReady(done, addr, time.Minute); err != context.Canceled {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, context.Canceled)
	}
}
