// Package runtime implements the run orchestration of the conditioning
// pipeline: precondition guard, bad-channel reconciliation, transform
// invocation, and processing-record assembly.
package runtime

import (
	"fmt"

	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/types"
)

// Assembler accumulates processing record entries in emission order.
// The record is append-only and flushed once per run. Execution is
// single-pass and single-threaded, so no locking is needed.
type Assembler struct {
	entries []types.RecordEntry
}

// NewAssembler creates an empty processing record assembler.
func NewAssembler() *Assembler { return &Assembler{} }

// Warning appends a non-fatal advisory entry.
func (a *Assembler) Warning(msg string) {
	a.entries = append(a.entries, types.RecordEntry{Type: types.RecordWarning, Msg: msg})
}

// Warningf appends a formatted warning entry.
func (a *Assembler) Warningf(format string, args ...any) {
	a.Warning(fmt.Sprintf(format, args...))
}

// Error appends the terminal failure entry. The orchestrator short-circuits
// on the first fatal condition, so at most one error entry is ever emitted.
func (a *Assembler) Error(msg string) {
	a.entries = append(a.entries, types.RecordEntry{Type: types.RecordError, Msg: msg})
}

// Success appends the terminal success entry, emitted exactly once and only
// when the transform completed without error.
func (a *Assembler) Success(msg string) {
	a.entries = append(a.entries, types.RecordEntry{Type: types.RecordSuccess, Msg: msg})
}

// Entries returns a copy of the accumulated record in emission order.
func (a *Assembler) Entries() []types.RecordEntry {
	out := make([]types.RecordEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Verify Assembler satisfies the resolver's warning sink.
var _ resolve.RecordSink = (*Assembler)(nil)
