// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to describe the condition and
// configuration database of the EtherCAT installation: the slave
// inventory and the versioned field sets resolved against the
// process image.
package conddb // import "github.com/freia-lab/e3-ecat2/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to retrieve the slave inventory and
// field-set definitions from the installation database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the installation database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastFieldSet returns the name of the most recently committed field
// set.
func (db *DB) LastFieldSet(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM fieldsets ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("conddb: could not query field set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("conddb: could not get field-set value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("conddb: could not scan db for field set: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("conddb: context error while retrieving field set: %w", err)
	}

	return name, nil
}

// Fields returns the field definitions of the named field set for one
// slave.
func (db *DB) Fields(ctx context.Context, fieldset string, slave string) ([]Field, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfg []Field
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT fields.* FROM fields
JOIN fieldset_fields ON fields.identifier=fieldset_fields.field
JOIN fieldsets       ON fieldsets.identifier=fieldset_fields.fieldset
WHERE (
	fieldsets.name=? AND fields.slave=?
)
`,
		fieldset, slave,
	)
	if err != nil {
		return cfg, fmt.Errorf("conddb: could not run field query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var f Field
		err = rows.Scan(&f.PrimaryID, &f.Slave, &f.Name, &f.Offset, &f.Type)
		if err != nil {
			return cfg, fmt.Errorf("conddb: could not scan row %d for field cfg: %w", i, err)
		}
		i++

		cfg = append(cfg, f)
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("conddb: could not scan db for field cfg: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("conddb: context error while retrieving field cfg: %w", err)
	}

	return cfg, nil
}

// Slaves returns the slave inventory.
func (db *DB) Slaves(ctx context.Context) ([]Slave, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfg []Slave
	rows, err := db.db.QueryContext(ctx, "SELECT * FROM slaves")
	if err != nil {
		return cfg, fmt.Errorf(
			"conddb: could not run slaves query: %w",
			err,
		)
	}
	defer rows.Close()

	for rows.Next() {
		var slv Slave
		err = rows.Scan(
			&slv.ID, &slv.Name, &slv.Alias, &slv.Position,
			&slv.VendorID, &slv.ProductCode,
			&slv.OutSize, &slv.InSize,
		)
		if err != nil {
			return cfg, fmt.Errorf(
				"conddb: could not scan slaves: %w",
				err,
			)
		}
		cfg = append(cfg, slv)
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf(
			"conddb: could not scan db for slaves: %w",
			err,
		)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf(
			"conddb: context error while retrieving slaves: %w",
			err,
		)
	}

	return cfg, nil
}
