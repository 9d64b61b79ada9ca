// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-sdo provides an interactive shell to inspect the CoE
// object dictionary of a slave.
//
// Usage: ecat-sdo [OPTIONS] CONFIG
//
// Example:
//
//  $> ecat-sdo ./testdata/freia.json
//  ecat-sdo> count 0x1c13
//  0x1c13:00 = 1
//  ecat-sdo> read 0x1c13:01
//  0x1c13:01 = 0x00 0x1a
//  ecat-sdo> pdos
//  out: 0x1600 (62 entries)
//  in:  0x1a00 (234 entries)
//  ecat-sdo> quit
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-sdo"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/config"
	"github.com/freia-lab/e3-ecat2/master"
	"github.com/freia-lab/e3-ecat2/sim"
)

func main() {
	log.SetPrefix("ecat-sdo: ")
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Printf(`ecat-sdo provides an interactive shell to inspect the CoE
object dictionary of a slave.

Usage: ecat-sdo [OPTIONS] CONFIG

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

	sess, err := master.NewSession(mst, slv.ID(cfg.Defaults),
		master.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		log.Fatalf("could not create session: %+v", err)
	}

	ctx := context.Background()
	if _, err := sess.WaitForState(ctx, master.PreOp, 5*time.Second); err != nil {
		log.Fatalf("could not reach PREOP: %+v", err)
	}

	hnd, err := mst.Slave(slv.ID(cfg.Defaults))
	if err != nil {
		log.Fatalf("could not get slave: %+v", err)
	}

	repl(ctx, coe.NewReader(hnd))
}

func repl(ctx context.Context, rd *coe.Reader) {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var out []string
		for _, cmd := range []string{"read ", "count ", "map ", "pdos", "help", "quit"} {
			if strings.HasPrefix(cmd, strings.ToLower(line)) {
				out = append(out, cmd)
			}
		}
		return out
	})

	for {
		line, err := term.Prompt("ecat-sdo> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				fmt.Println()
				return
			}
			log.Printf("could not read line: %+v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		if line == "quit" || line == "exit" {
			return
		}
		out, err := eval(ctx, rd, line)
		if err != nil {
			log.Printf("%+v", err)
			continue
		}
		fmt.Print(out)
	}
}

func eval(ctx context.Context, rd *coe.Reader, line string) (string, error) {
	toks := strings.Fields(line)
	switch toks[0] {
	case "help":
		return `commands:
 read  0xIIII:SS  read a raw object
 count 0xIIII     read an 8-bit count (subindex 0)
 map   0xIIII     decode a PDO mapping object
 pdos             list the assigned PDOs of both directions
 quit             leave the shell
`, nil

	case "read":
		if len(toks) != 2 {
			return "", fmt.Errorf("usage: read 0xIIII:SS")
		}
		ref, err := parseRef(toks[1])
		if err != nil {
			return "", err
		}
		data, err := rd.ReadObject(ctx, ref, 1, 2, 4, 8)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v = % #x\n", ref, data), nil

	case "count":
		if len(toks) != 2 {
			return "", fmt.Errorf("usage: count 0xIIII")
		}
		ref, err := parseRef(toks[1])
		if err != nil {
			return "", err
		}
		cnt, err := rd.ReadCount(ctx, ref)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v = %d\n", ref, cnt), nil

	case "map":
		if len(toks) != 2 {
			return "", fmt.Errorf("usage: map 0xIIII")
		}
		ref, err := parseRef(toks[1])
		if err != nil {
			return "", err
		}
		pdo, err := coe.ReadMapping(ctx, rd, ref.Index)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "PDO 0x%04x: %d entries\n", pdo.Index, len(pdo.Entries))
		for i, e := range pdo.Entries {
			fmt.Fprintf(&sb, "  [%3d] %v (%d bits)\n", i, e.ObjectRef, e.Bits)
		}
		return sb.String(), nil

	case "pdos":
		out, in, err := coe.Discover(ctx, rd)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, pdo := range out {
			fmt.Fprintf(&sb, "out: 0x%04x (%d entries)\n", pdo.Index, len(pdo.Entries))
		}
		for _, pdo := range in {
			fmt.Fprintf(&sb, "in:  0x%04x (%d entries)\n", pdo.Index, len(pdo.Entries))
		}
		return sb.String(), nil
	}

	return "", fmt.Errorf("unknown command %q (try \"help\")", toks[0])
}

// parseRef parses "0xIIII" or "0xIIII:SS" object coordinates.
func parseRef(s string) (coe.ObjectRef, error) {
	var (
		ref  coe.ObjectRef
		toks = strings.SplitN(s, ":", 2)
	)
	idx, err := strconv.ParseUint(toks[0], 0, 16)
	if err != nil {
		return ref, fmt.Errorf("invalid object index %q: %w", toks[0], err)
	}
	ref.Index = uint16(idx)

	if len(toks) == 2 {
		sub, err := strconv.ParseUint(toks[1], 16, 8)
		if err != nil {
			return ref, fmt.Errorf("invalid subindex %q: %w", toks[1], err)
		}
		ref.Sub = uint8(sub)
	}
	return ref, nil
}
