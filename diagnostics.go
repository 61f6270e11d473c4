// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"fmt"
	"io"

	"github.com/stephens2424/writerset"
	"go.uber.org/multierr"
)

// Warnings fans out non-fatal builder/rebuilder diagnostics (unresolved
// script imports, bulk-data validation fallbacks) to every writer
// registered with Subscribe, and separately aggregates them with
// go.uber.org/multierr so a caller that wants all warnings as a single
// error can get one.
type Warnings struct {
	set *writerset.WriterSet
	err error
}

// NewWarnings returns an empty warning sink.
func NewWarnings() *Warnings {
	return &Warnings{set: writerset.New()}
}

// Subscribe registers w to receive every future warning line.
func (d *Warnings) Subscribe(w io.Writer) func() {
	return d.set.Add(w)
}

// Warn records msg: it is written to every subscriber and folded into the
// aggregate error multierr.Combine callers can retrieve with Err.
func (d *Warnings) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(d.set, msg)
	d.err = multierr.Append(d.err, fmt.Errorf("%s", msg))
}

// Err returns every warning recorded so far, combined, or nil if none.
func (d *Warnings) Err() error { return d.err }
