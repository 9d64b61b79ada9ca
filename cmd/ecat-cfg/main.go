// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-cfg configures the process data of every slave declared
// in a static configuration file, activates the master and validates
// the runtime packing of the process image.
//
// Usage: ecat-cfg [OPTIONS] CONFIG
//
// Example:
//
//  $> ecat-cfg ./testdata/freia.json
//  slave "slave0" (alias=0 pos=0 vendor=0x0000006c product=0x0000a72c)
//  registered 296 entries (62 outputs)
//  image size: 296 bytes
//  packing: OK
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-cfg"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/pdi"
	"github.com/freia-lab/e3-ecat2/sim"
)

func main() {
	log.SetPrefix("ecat-cfg: ")
	log.SetFlags(0)

	var (
		hold    = flag.Duration("hold", 0, "keep the process data active for this long after validation")
		period  = flag.Duration("period", 10*time.Millisecond, "bus cycle period while holding")
		verbose = flag.Bool("v", false, "enable verbose mode")
	)

	flag.Usage = func() {
		fmt.Printf(`ecat-cfg configures the process data of every slave declared
in a static configuration file, activates the master and validates the
runtime packing of the process image.

Usage: ecat-cfg [OPTIONS] CONFIG

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

	err = run(os.Stdout, cfg, simFor(cfg.Defaults), *hold, *period, *verbose)
	if err != nil {
		log.Fatalf("could not configure process data: %+v", err)
	}
}

// simFor returns a master factory backed by the in-process simulator,
// each slave advertising exactly the PDO layout the configuration
// declares.
func simFor(def config.Defaults) func(config.Slave) master.Master {
	return func(slv config.Slave) master.Master {
		return sim.New(sim.SlaveConfig{
			ID:  slv.ID(def),
			Out: []coe.Pdo{slv.SM2.Pdo()},
			In:  []coe.Pdo{slv.SM3.Pdo()},
		})
	}
}

// run validates every declared slave, each against its own master
// instance.
func run(w io.Writer, cfg *config.Config, mkMaster func(config.Slave) master.Master, hold, period time.Duration, verbose bool) error {
	ctx := context.Background()

	for _, slv := range cfg.Slaves {
		id := slv.ID(cfg.Defaults)
		mst := mkMaster(slv)
		fmt.Fprintf(w, "slave %q (%v)\n", slv.Name, id)

		sess, err := master.NewSession(mst, id,
			master.WithLogger(log.New(io.Discard, "", 0)),
		)
		if err != nil {
			return fmt.Errorf("could not create session for %q: %w", slv.Name, err)
		}

		if err := sess.Setup(ctx); err != nil {
			return fmt.Errorf("could not set up %q: %w", slv.Name, err)
		}

		layout := sess.Layout()
		fmt.Fprintf(w, "registered %d entries (%d outputs)\n",
			layout.Len(), layout.RxCount(),
		)
		fmt.Fprintf(w, "image size: %d bytes\n", mst.Domain().Size())

		if verbose {
			for i, reg := range layout.Registrations() {
				off, err := layout.Offset(i)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  entry[%3d]: %v -> byte=%d bit=%d\n",
					i, reg.Object, off.Byte, off.Bit,
				)
			}
		}

		vs, err := pdi.VerifyPacking(layout, mst.Domain().Size())
		if err != nil {
			return fmt.Errorf("could not verify packing for %q: %w", slv.Name, err)
		}
		if len(vs) > 0 {
			for _, v := range vs {
				fmt.Fprintf(w, "packing: %v\n", v)
			}
			return fmt.Errorf("packing validation failed for %q (%d violation(s))", slv.Name, len(vs))
		}
		fmt.Fprintf(w, "packing: OK\n")

		fields, err := cfg.FieldsFor(slv.Name)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			resolved, err := pdi.Resolve(fields, layout, layout.RxCount())
			if err != nil {
				return fmt.Errorf("could not resolve fields for %q: %w", slv.Name, err)
			}
			for _, rf := range resolved {
				if !rf.Valid {
					fmt.Fprintf(w, "field %-10s INVALID\n", rf.Name)
					continue
				}
				fmt.Fprintf(w, "field %-10s offsets=%v\n", rf.Name, rf.Offsets)
			}
		}

		if hold > 0 {
			hctx, cancel := context.WithTimeout(ctx, hold)
			err := sess.Pump(hctx, period, func(image []byte) error { return nil })
			cancel()
			if err != nil && err != context.DeadlineExceeded {
				return fmt.Errorf("could not hold process data for %q: %w", slv.Name, err)
			}
		}
	}

	return nil
}
