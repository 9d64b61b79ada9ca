// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ecat-sql inspects the installation database: the slave
// inventory and the field-set definitions.
package main // import "github.com/freia-lab/e3-ecat2/cmd/ecat-sql"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/freia-lab/e3-ecat2/conddb"
	_ "github.com/go-sql-driver/mysql"
)

const (
	dbname = "freiasrv"
)

func main() {
	log.SetPrefix("ecat-sql: ")
	log.SetFlags(0)

	var (
		fieldset = flag.String("field-set", "", "field set to inspect")
		slave    = flag.String("slave", "slave0", "slave to inspect")
	)

	flag.Parse()

	log.Printf("slave: %q", *slave)
	log.Printf("cfg:   %q", *fieldset)

	db, err := conddb.Open(dbname)
	if err != nil {
		log.Fatalf("could not open installation db: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, *fieldset, *slave)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *conddb.DB, fieldset, slave string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if fieldset == "" {
		v, err := db.LastFieldSet(ctx)
		if err != nil {
			return fmt.Errorf("could not get last field-set value: %w", err)
		}
		fieldset = v
		log.Printf("field-set: %q", fieldset)
	}

	fields, err := db.Fields(ctx, fieldset, slave)
	if err != nil {
		return fmt.Errorf("could not get field cfg (set=%q, slave=%q): %w",
			fieldset, slave, err,
		)
	}
	log.Printf("fields: %d", len(fields))
	for i, f := range fields {
		pf, err := f.PdiField()
		if err != nil {
			return fmt.Errorf("could not convert field row %d: %w", i, err)
		}
		log.Printf(">>> %-10s offset=%3d width=%d", pf.Name, pf.Offset, pf.Width)
	}

	slaves, err := db.Slaves(ctx)
	if err != nil {
		return fmt.Errorf("could not retrieve slaves: %w", err)
	}
	log.Printf("slaves: %d", len(slaves))
	for i, slv := range slaves {
		log.Printf("row[%d]: %s (%v) out=%d in=%d",
			i, slv.Name, slv.SlaveID(), slv.OutSize, slv.InSize,
		)
	}

	return nil
}
