// Package poison implements the cooperative cancellation flag propagated
// through query evaluation (spec.md §4.1).
package poison

import (
	"sync/atomic"
	"time"

	"github.com/cuemby/strata/pkg/dberr"
)

// Poison is a process-wide shared atomic cancellation flag. The zero value
// is inert: Check never fails and Set/SetTimeout have no effect. Use New
// to get a flag that can be tripped.
type Poison struct {
	flag *atomic.Bool
}

// New returns a fresh, unset Poison.
func New() Poison {
	return Poison{flag: new(atomic.Bool)}
}

// Check returns eval::killed iff the flag is set. Evaluator collaborators
// must call this at bounded intervals: at minimum between fixpoint
// iterations and between tuples emitted from scans. The contract is
// cooperative, not preemptive.
func (p Poison) Check() error {
	if p.flag == nil {
		return nil
	}
	if p.flag.Load() {
		return dberr.New(dberr.CodeKilled, "process is killed before completion").
			WithPayload(map[string]string{"help": "a query may be killed by timeout, or by an explicit kill command"})
	}
	return nil
}

// Set trips the flag, as if the query had timed out or been killed.
func (p Poison) Set() {
	if p.flag != nil {
		p.flag.Store(true)
	}
}

// SetTimeout arms a detached timer that trips the flag after secs
// (fractional seconds, microsecond resolution). It never blocks the
// caller.
func (p Poison) SetTimeout(secs float64) {
	if p.flag == nil {
		return
	}
	d := time.Duration(secs * float64(time.Second))
	timer := time.AfterFunc(d, func() {
		p.flag.Store(true)
	})
	_ = timer
}

// IsSet reports whether the flag is currently tripped, without producing an
// error. Useful for non-evaluation observers (e.g. the registry's
// defensive cleanup).
func (p Poison) IsSet() bool {
	return p.flag != nil && p.flag.Load()
}
