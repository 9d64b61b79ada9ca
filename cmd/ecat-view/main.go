// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-view discovers the PDO layout of a slave, brings the
// process data up and periodically displays the decoded values of the
// configured fields.
//
// Usage: ecat-view [OPTIONS] CONFIG
//
// Example:
//
//  $> ecat-view -period=1s ./testdata/freia.json
//  X          = 0x1234
//  status     = 0x01
//  counter    = 0x0000002a
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-view"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/pdi"
	"github.com/freia-lab/e3-ecat2/sim"
)

func main() {
	log.SetPrefix("ecat-view: ")
	log.SetFlags(0)

	var (
		period = flag.Duration("period", 1*time.Second, "display refresh period")
		cycle  = flag.Duration("cycle", 10*time.Millisecond, "bus cycle period")
	)

	flag.Usage = func() {
		fmt.Printf(`ecat-view discovers the PDO layout of a slave, brings the
process data up and periodically displays the decoded values of the
configured fields.

Usage: ecat-view [OPTIONS] CONFIG

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to configuration file")
	}

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	slv := cfg.Slaves[0]
	mst := sim.New(sim.SlaveConfig{
		ID:  slv.ID(cfg.Defaults),
		Out: []coe.Pdo{slv.SM2.Pdo()},
		In:  []coe.Pdo{slv.SM3.Pdo()},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer cancel()

	err = run(ctx, os.Stdout, cfg, slv, mst, *period, *cycle)
	if err != nil && err != context.Canceled {
		log.Fatalf("could not run viewer: %+v", err)
	}
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, slv config.Slave, mst master.Master, period, cycle time.Duration) error {
	sess, err := master.NewSession(mst, slv.ID(cfg.Defaults),
		master.WithLogger(log.New(os.Stdout, "ecat-view: ", 0)),
	)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	if err := sess.Setup(ctx); err != nil {
		return fmt.Errorf("could not set up session: %w", err)
	}

	fields, err := cfg.FieldsFor(slv.Name)
	if err != nil {
		return err
	}
	resolved, err := pdi.Resolve(fields, sess.Layout(), sess.Layout().RxCount())
	if err != nil {
		return fmt.Errorf("could not resolve fields: %w", err)
	}
	for _, rf := range resolved {
		if !rf.Valid {
			log.Printf("field %q does not fit the input image, skipping", rf.Name)
		}
	}

	var (
		grp, gctx = errgroup.WithContext(ctx)
		vals      = make(chan []byte, 1)
	)

	grp.Go(func() error {
		return sess.Pump(gctx, cycle, func(image []byte) error {
			snap := make([]byte, len(image))
			copy(snap, image)
			select {
			case vals <- snap:
			default:
			}
			return nil
		})
	})

	grp.Go(func() error {
		tick := time.NewTicker(period)
		defer tick.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-tick.C:
				select {
				case image := <-vals:
					display(w, resolved, image)
				default:
				}
			}
		}
	})

	return grp.Wait()
}

func display(w io.Writer, resolved []pdi.ResolvedField, image []byte) {
	for _, rf := range resolved {
		if !rf.Valid {
			continue
		}
		v, err := pdi.Decode(rf, image)
		if err != nil {
			fmt.Fprintf(w, "%-10s = ERR (%v)\n", rf.Name, err)
			continue
		}
		fmt.Fprintf(w, "%-10s = 0x%0*x\n", rf.Name, 2*rf.Width, v)
	}
}
