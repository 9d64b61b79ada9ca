// Copyright 2026 The e3-ecat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coe

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// Uploader starts SDO uploads from one slave's object dictionary.
// It is the only transport seam of this package; implementations are
// provided by the master binding (or by sim for tests).
type Uploader interface {
	Upload(ref ObjectRef) (Request, error)
}

// Request is a pending SDO upload. Done reports whether the reply has
// arrived; Data is only valid once Done returns true.
type Request interface {
	Done() bool
	Data() []byte
}

// Reader performs synchronous, timeout-bounded object reads by polling
// upload requests at a fixed short interval. Reads block the calling
// goroutine for up to attempts*interval and must only be issued during
// setup, never from inside the cyclic exchange.
type Reader struct {
	upl      Uploader
	attempts int
	interval time.Duration
}

type ReaderOption func(*Reader)

// WithAttempts sets the number of completion polls per read.
func WithAttempts(n int) ReaderOption {
	return func(rd *Reader) { rd.attempts = n }
}

// WithInterval sets the pause between completion polls.
func WithInterval(d time.Duration) ReaderOption {
	return func(rd *Reader) { rd.interval = d }
}

func NewReader(upl Uploader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		upl:      upl,
		attempts: 200,
		interval: 1 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// ReadObject uploads ref and returns the reply bytes. The reply length
// must be one of widths; anything else is ErrSizeMismatch. The read
// gives up with ErrTimeout after the configured poll budget.
func (rd *Reader) ReadObject(ctx context.Context, ref ObjectRef, widths ...int) ([]byte, error) {
	req, err := rd.upl.Upload(ref)
	if err != nil {
		return nil, fmt.Errorf("coe: could not start upload of %v: %w", ref, err)
	}

	for i := 0; i < rd.attempts; i++ {
		if req.Done() {
			data := req.Data()
			for _, w := range widths {
				if len(data) == w {
					return data, nil
				}
			}
			return nil, fmt.Errorf(
				"coe: invalid reply size for %v (got=%d, want=%v): %w",
				ref, len(data), widths, ErrSizeMismatch,
			)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("coe: upload of %v interrupted: %w", ref, ctx.Err())
		case <-time.After(rd.interval):
		}
	}

	return nil, fmt.Errorf("coe: could not read %v: %w", ref, ErrTimeout)
}

// ReadCount reads an 8-bit count field, tolerating 1-, 2- and 4-byte
// replies carrying the value in the first byte.
func (rd *Reader) ReadCount(ctx context.Context, ref ObjectRef) (uint8, error) {
	data, err := rd.ReadObject(ctx, ref, 1, 2, 4)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// ReadPdoIndex reads a 16-bit PDO index, tolerating wider replies and
// keeping the low 16 bits.
func (rd *Reader) ReadPdoIndex(ctx context.Context, ref ObjectRef) (uint16, error) {
	data, err := rd.ReadObject(ctx, ref, 2, 4, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data[:2]), nil
}

// ReadMappingWord reads a 32-bit mapping word. The reply must be
// exactly 4 bytes.
func (rd *Reader) ReadMappingWord(ctx context.Context, ref ObjectRef) (uint32, error) {
	data, err := rd.ReadObject(ctx, ref, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}
