// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-srv exposes the process data of a slave as a TDAQ
// server: the usual /config, /init, /start, /stop command handlers and
// a /pdi output stream carrying process-image snapshots.
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-srv"

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/sim"
)

func main() {
	log.SetPrefix("ecat-srv: ")
	log.SetFlags(0)

	cmd := flags.New()

	cfgname, err := cfgnameFrom(cmd.Args)
	if err != nil {
		log.Fatalf("%+v (usage: ecat-srv [OPTIONS] CONFIG)", err)
	}

	dev := server{
		cfgname: cfgname,
		cycle:   10 * time.Millisecond,
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/pdi", dev.pdi)

	srv.RunHandle(dev.run)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

// cfgnameFrom extracts the configuration file from the positional
// arguments left over after the TDAQ flags.
func cfgnameFrom(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing path to configuration file")
	}
	return args[0], nil
}

type server struct {
	cfgname string
	cycle   time.Duration

	mu      sync.Mutex
	mst     master.Master
	sess    *master.Session
	started bool

	data chan []byte
}

func (dev *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	cfg, err := config.Load(dev.cfgname)
	if err != nil {
		return fmt.Errorf("could not load configuration %q: %w", dev.cfgname, err)
	}

	slv := cfg.Slaves[0]
	mst := sim.New(sim.SlaveConfig{
		ID:  slv.ID(cfg.Defaults),
		Out: []coe.Pdo{slv.SM2.Pdo()},
		In:  []coe.Pdo{slv.SM3.Pdo()},
	})

	sess, err := master.NewSession(mst, slv.ID(cfg.Defaults),
		master.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	dev.mu.Lock()
	dev.mst = mst
	dev.sess = sess
	dev.started = false
	dev.mu.Unlock()

	return nil
}

func (dev *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")

	dev.mu.Lock()
	sess := dev.sess
	dev.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("server not configured")
	}

	err := sess.Setup(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("could not set up process data: %w", err)
	}

	dev.mu.Lock()
	dev.data = make(chan []byte, 1024)
	dev.mu.Unlock()

	ctx.Msg.Infof("process data up: %d entries, image=%d bytes",
		sess.Layout().Len(), dev.mst.Domain().Size(),
	)
	return nil
}

func (dev *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	if err := dev.OnConfig(ctx, resp, req); err != nil {
		return err
	}
	return dev.OnInit(ctx, resp, req)
}

func (dev *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	dev.mu.Lock()
	dev.started = true
	dev.mu.Unlock()
	return nil
}

func (dev *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	dev.mu.Lock()
	dev.started = false
	dev.mu.Unlock()
	return nil
}

func (dev *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (dev *server) pdi(ctx tdaq.Context, dst *tdaq.Frame) error {
	dev.mu.Lock()
	data := dev.data
	dev.mu.Unlock()
	if data == nil {
		dst.Body = nil
		return nil
	}

	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case body := <-data:
		dst.Body = body
	}
	return nil
}

func (dev *server) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
			dev.mu.Lock()
			var (
				mst     = dev.mst
				data    = dev.data
				started = dev.started
			)
			dev.mu.Unlock()

			if started && mst != nil {
				err := mst.Cycle()
				if err != nil {
					ctx.Msg.Errorf("could not run bus cycle: %+v", err)
					return fmt.Errorf("could not run bus cycle: %w", err)
				}
				image := mst.Domain().Data()
				snap := make([]byte, len(image))
				copy(snap, image)
				select {
				case data <- snap:
				default:
				}
			}
		}
		time.Sleep(dev.cycle)
	}
}
