// Package types defines core domain types for the maxprep pipeline stage.
//
//nolint:revive // types is a common Go package naming convention
package types

// AuxKind identifies one optional auxiliary input to the Maxwell filter.
type AuxKind string

// The six auxiliary kinds resolved per run.
const (
	// AuxCalibration is the site/device fine-calibration coefficients file.
	AuxCalibration AuxKind = "calibration"
	// AuxCrossTalk is the sensor cross-coupling correction file.
	AuxCrossTalk AuxKind = "crosstalk"
	// AuxDestination is the target head-frame reference file.
	AuxDestination AuxKind = "destination"
	// AuxHeadPos is the head-position-over-time file for movement compensation.
	AuxHeadPos AuxKind = "headpos"
	// AuxChannels is the tabular channel-status file (name/status columns).
	AuxChannels AuxKind = "channels"
	// AuxEvents is the tabular events file.
	AuxEvents AuxKind = "events"
)

// AllAuxKinds lists every auxiliary kind in resolution order.
// The order is fixed so output-area copies happen deterministically.
var AllAuxKinds = []AuxKind{
	AuxCalibration,
	AuxCrossTalk,
	AuxDestination,
	AuxHeadPos,
	AuxChannels,
	AuxEvents,
}

// AuxFile is the resolved state of one auxiliary kind.
// Constructed once during resolution and never mutated afterward.
type AuxFile struct {
	// Kind is the auxiliary kind this resolution belongs to.
	Kind AuxKind `msgpack:"kind" json:"kind"`
	// Path is the resolved source path. Empty means the kind is absent.
	Path string `msgpack:"path,omitempty" json:"path,omitempty"`
	// Copied reports whether the resolved artifact was persisted into the
	// run's output area under its canonical name.
	Copied bool `msgpack:"copied" json:"copied"`
	// FromOverride reports whether the override candidate won resolution.
	FromOverride bool `msgpack:"from_override" json:"from_override"`
}

// Resolved reports whether the kind resolved to an existing artifact.
func (f *AuxFile) Resolved() bool {
	return f != nil && f.Path != ""
}
