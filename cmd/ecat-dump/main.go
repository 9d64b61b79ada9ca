// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-dump brings the process data of a slave up and hex-dumps
// the process image for a number of bus cycles.
//
// Usage: ecat-dump [OPTIONS] CONFIG
//
// Example:
//
//  $> ecat-dump -n=2 ./testdata/freia.json
//  === cycle 1 (296 bytes) ===
//  00000000  00 00 00 00 00 00 00 00  00 00 00 00 00 00 00 00  |................|
//  [...]
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-dump"

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/sim"
)

func main() {
	log.SetPrefix("ecat-dump: ")
	log.SetFlags(0)

	var (
		n     = flag.Int("n", 1, "number of cycles to dump")
		cycle = flag.Duration("cycle", 10*time.Millisecond, "bus cycle period")
	)

	flag.Usage = func() {
		fmt.Printf(`ecat-dump brings the process data of a slave up and hex-dumps
the process image for a number of bus cycles.

Usage: ecat-dump [OPTIONS] CONFIG

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

	err = process(os.Stdout, cfg, slv, mst, *n, *cycle)
	if err != nil {
		log.Fatalf("could not dump process image: %+v", err)
	}
}

func process(w io.Writer, cfg *config.Config, slv config.Slave, mst master.Master, n int, cycle time.Duration) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	sess, err := master.NewSession(mst, slv.ID(cfg.Defaults),
		master.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	ctx := context.Background()
	if err := sess.Setup(ctx); err != nil {
		return fmt.Errorf("could not set up session: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	i := 0
	err = sess.Pump(ctx, cycle, func(image []byte) error {
		i++
		fmt.Fprintf(wbuf, "=== cycle %d (%d bytes) ===\n", i, len(image))
		fmt.Fprintf(wbuf, "%s", hex.Dump(image))
		if i >= n {
			cancel()
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("could not pump bus cycles: %w", err)
	}

	return nil
}
