// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package master

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/freia-lab/e3-ecat2/coe"
	"github.com/freia-lab/e3-ecat2/pdi"
)

// ErrWaitTimeout is returned by WaitForState when the slave does not
// reach the requested state within the allotted time.
var ErrWaitTimeout = errors.New("master: state wait timed out")

// Session drives one slave through discovery, configuration,
// registration and activation, then serves the cyclic exchange.
type Session struct {
	msg  *log.Logger
	mst  Master
	slv  Slave
	id   pdi.SlaveID
	quum time.Duration // state-poll quantum
	ropt []coe.ReaderOption

	layout *pdi.Layout
}

type Option func(*Session)

// WithLogger sets the logger messages are sent to.
func WithLogger(msg *log.Logger) Option {
	return func(s *Session) { s.msg = msg }
}

// WithPollInterval sets the pause between state polls in WaitForState.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.quum = d }
}

// WithReaderOptions forwards options to the object-dictionary reader
// used during discovery.
func WithReaderOptions(opts ...coe.ReaderOption) Option {
	return func(s *Session) { s.ropt = opts }
}

func NewSession(mst Master, id pdi.SlaveID, opts ...Option) (*Session, error) {
	s := &Session{
		msg:  log.New(os.Stdout, "ecat: ", 0),
		mst:  mst,
		id:   id,
		quum: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	slv, err := mst.Slave(id)
	if err != nil {
		return nil, fmt.Errorf("master: could not get slave (%v): %w", id, err)
	}
	s.slv = slv
	return s, nil
}

// Layout returns the registration layout, nil before Register.
func (s *Session) Layout() *pdi.Layout { return s.layout }

// WaitForState pumps bus cycles until the slave reports the target
// state, the timeout elapses or the context is canceled. The last
// observed state is returned in every case.
func (s *Session) WaitForState(ctx context.Context, target State, timeout time.Duration) (State, error) {
	var (
		last     = Unknown
		deadline = time.Now().Add(timeout)
	)
	for {
		if err := s.mst.Cycle(); err != nil {
			return last, fmt.Errorf("master: could not run bus cycle: %w", err)
		}
		st, err := s.slv.State()
		if err != nil {
			return last, fmt.Errorf("master: could not read slave state: %w", err)
		}
		last = st
		if st == target {
			return st, nil
		}
		if time.Now().After(deadline) {
			return st, fmt.Errorf(
				"master: slave stuck in %v waiting for %v: %w",
				st, target, ErrWaitTimeout,
			)
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("master: state wait interrupted: %w", ctx.Err())
		case <-time.After(s.quum):
		}
	}
}

// Discover reads the dynamic PDO layout from the slave's object
// dictionary. The slave must be at least in PREOP.
func (s *Session) Discover(ctx context.Context) (out, in []coe.Pdo, err error) {
	rd := coe.NewReader(s.slv, s.ropt...)
	out, in, err = coe.Discover(ctx, rd)
	if err != nil {
		return nil, nil, err
	}
	s.msg.Printf("discovered %d output and %d input PDO(s)", len(out), len(in))
	return out, in, nil
}

// Configure programs the four sync-manager channels from the
// discovered PDO layout.
func (s *Session) Configure(out, in []coe.Pdo) error {
	slots := pdi.BuildSyncLayout(out, in)
	if err := s.slv.ConfigureSync(slots); err != nil {
		return fmt.Errorf("master: could not configure sync managers: %w", err)
	}
	return nil
}

// Register flattens the PDO layout into the ordered registration list
// and submits it to the domain.
func (s *Session) Register(out, in []coe.Pdo) error {
	layout, err := pdi.BuildRegistrations(s.id, out, in)
	if err != nil {
		return err
	}
	if err := s.mst.Domain().Register(layout.Registrations()); err != nil {
		return fmt.Errorf("master: could not register entries: %w", err)
	}
	s.layout = layout
	s.msg.Printf("registered %d entries (%d outputs)", layout.Len(), layout.RxCount())
	return nil
}

// Activate finalizes the master configuration and binds the runtime
// offsets to the layout. Register must have been called first.
func (s *Session) Activate() error {
	if s.layout == nil {
		return fmt.Errorf("master: no registrations (Register not called)")
	}
	if err := s.mst.Activate(); err != nil {
		return fmt.Errorf("master: could not activate: %w", err)
	}
	offs, err := s.mst.Domain().Offsets()
	if err != nil {
		return fmt.Errorf("master: could not get runtime offsets: %w", err)
	}
	if err := s.layout.Bind(offs); err != nil {
		return err
	}
	s.msg.Printf("activated: image size=%d bytes", s.mst.Domain().Size())
	return nil
}

// Setup runs the whole bring-up sequence: wait for PREOP, discover the
// PDO layout, configure the sync managers, register the entries,
// activate and wait for OP.
func (s *Session) Setup(ctx context.Context) error {
	if _, err := s.WaitForState(ctx, PreOp, 5*time.Second); err != nil {
		return err
	}
	out, in, err := s.Discover(ctx)
	if err != nil {
		return err
	}
	if err := s.Configure(out, in); err != nil {
		return err
	}
	if err := s.Register(out, in); err != nil {
		return err
	}
	if err := s.Activate(); err != nil {
		return err
	}
	if _, err := s.WaitForState(ctx, Op, 5*time.Second); err != nil {
		return err
	}
	return nil
}

// Pump runs the cyclic exchange at the given period, handing the live
// process image to fn after each cycle, until the context is canceled
// or fn returns an error.
func (s *Session) Pump(ctx context.Context, period time.Duration, fn func(image []byte) error) error {
	tick := time.NewTicker(period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if err := s.mst.Cycle(); err != nil {
				return fmt.Errorf("master: could not run bus cycle: %w", err)
			}
			if err := fn(s.mst.Domain().Data()); err != nil {
				return err
			}
		}
	}
}
