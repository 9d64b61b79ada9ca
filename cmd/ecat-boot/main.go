// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-boot (re)starts the process-data services and waits for
// each of them to accept connections before declaring it up.
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-boot"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

// service is one process-data service under ecat-boot's care. Services
// that listen on a TCP address are polled until they accept a
// connection; the others are only started.
type service struct {
	name string
	args []string
	addr string
}

var (
	svcs = []service{
		{name: "ecat-srv", args: []string{"srv"}},
		{name: "ecat-watch", addr: "localhost:8866"},
	}
	dir = os.Getenv("E3ECATLOGDIR")

	doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
	doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")
	ready  = flag.Duration("ready", 10*time.Second, "readiness wait timeout")
)

func main() {
	flag.Parse()

	log.SetPrefix("ecat-boot: ")
	log.SetFlags(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := run(ctx, *doMon, *doFreq, *ready, svcs, dir)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(ctx context.Context, doMon bool, freq, ready time.Duration, svcs []service, dir string) error {
	for _, svc := range svcs {
		name := filepath.Base(svc.name)
		kill := exec.Command("killall", name)
		kill.Stderr = os.Stderr
		kill.Stdout = os.Stdout
		err := kill.Run()
		if err != nil {
			log.Printf("could not kill %q: %+v", name, err)
		}
	}

	if dir == "" {
		dir = "/var/log/e3-ecat"
	}

	grp, ctx := errgroup.WithContext(ctx)
	for i := range svcs {
		svc := svcs[i]
		grp.Go(func() error {
			return start(ctx, svc, dir, doMon, freq, ready)
		})
	}

	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot process-data services: %w", err)
	}
	return nil
}

func start(ctx context.Context, svc service, dir string, doMon bool, freq, ready time.Duration) error {
	name := filepath.Base(svc.name)
	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd := exec.Command(svc.name, svc.args...)
	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	if doMon {
		p, err := pmon.Monitor(cmd.Process.Pid)
		if err != nil {
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
		if err != nil {
			return fmt.Errorf("could not create pmon log file for command %q: %w", name, err)
		}
		defer f.Close()
		p.W = f
		p.Freq = freq

		go func() {
			log.Printf("run pmon %q...", name)
			err := p.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", name, err)
			}
		}()

		defer func() {
			err := p.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", name, err)
			}
		}()
	}

	if svc.addr != "" {
		err = waitReady(ctx, svc.addr, ready)
		if err != nil {
			_ = cmd.Process.Kill()
			return fmt.Errorf("service %q did not come up: %w", name, err)
		}
		log.Printf("service %q up on %q", name, svc.addr)
	}

	errch := make(chan error)
	go func() {
		errch <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %+v", name, err)
		}
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", name, err)
		}
	}

	return nil
}

// waitReady polls addr until the service accepts a TCP connection or
// the timeout expires.
func waitReady(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 1*time.Second)
		if err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no answer on %q after %v", addr, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
