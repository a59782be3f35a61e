// Package resolve implements auxiliary-input resolution for a run.
//
// Each of the six auxiliary kinds has up to two candidate sources: the
// primary path from the recording's own dataset, and (only in
// override-capable execution contexts) an override path. Resolution picks
// the effective source per kind, persists provenance copies into the
// output area under fixed canonical names, and never fails on a missing
// optional file — only on malformed or conflicting input.
package resolve

import (
	"context"
	"fmt"
	"os"

	"github.com/neuropipe-io/maxprep/iox"
	"github.com/neuropipe-io/maxprep/log"
	"github.com/neuropipe-io/maxprep/params"
	"github.com/neuropipe-io/maxprep/store"
	"github.com/neuropipe-io/maxprep/types"
)

// RecordSink receives non-fatal warnings accumulated into the run's
// processing record.
type RecordSink interface {
	Warning(msg string)
}

// kindSpec drives resolution per auxiliary kind: the canonical output-area
// name, and whether a primary-only hit is persisted for provenance.
// Channels and events are read in place when only a primary is supplied.
type kindSpec struct {
	canonical   string
	copyPrimary bool
}

var kindSpecs = map[types.AuxKind]kindSpec{
	types.AuxCalibration: {canonical: "calibration_meg.dat", copyPrimary: true},
	types.AuxCrossTalk:   {canonical: "crosstalk_meg.fif", copyPrimary: true},
	types.AuxDestination: {canonical: "destination.fif", copyPrimary: true},
	types.AuxHeadPos:     {canonical: "headshape.pos", copyPrimary: true},
	types.AuxChannels:    {canonical: "channels.tsv", copyPrimary: false},
	types.AuxEvents:      {canonical: "events.tsv", copyPrimary: false},
}

// CanonicalName returns the fixed output-area name for a kind.
func CanonicalName(kind types.AuxKind) string {
	return kindSpecs[kind].canonical
}

// Source holds the candidate paths for one auxiliary kind.
type Source struct {
	// Primary is the path from the recording's own dataset ("" = none).
	Primary string
	// Override is the override-context path ("" = none supplied).
	Override string
	// HasOverride marks that the run executes in an override-capable
	// context (the override key was present in the document, even empty).
	HasOverride bool
}

// Sources maps each auxiliary kind to its candidates.
type Sources map[types.AuxKind]Source

// configKeys maps auxiliary kinds to their config-document keys.
// The head-position kind keeps its legacy "headshape" document key.
var configKeys = map[types.AuxKind]string{
	types.AuxCalibration: "calibration",
	types.AuxCrossTalk:   "crosstalk",
	types.AuxDestination: "destination",
	types.AuxHeadPos:     "headshape",
	types.AuxChannels:    "channels",
	types.AuxEvents:      "events",
}

// SourcesFromConfig extracts the per-kind candidate paths from the raw
// parameter bag. Override keys use the "_override" suffix and are only
// present in override-capable contexts.
func SourcesFromConfig(raw map[string]any) Sources {
	srcs := make(Sources, len(configKeys))
	for kind, key := range configKeys {
		src := Source{Primary: stringValue(raw[key])}
		if v, ok := raw[key+"_override"]; ok {
			src.HasOverride = true
			src.Override = stringValue(v)
		}
		srcs[kind] = src
	}
	return srcs
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// Set is the outcome of resolution: one AuxFile per kind plus the parsed
// side-products consumed by later stages.
type Set struct {
	// Files holds the resolved state per kind, always all six.
	Files map[types.AuxKind]*types.AuxFile
	// HeadPositions is the parsed head-position time series when the
	// headpos kind resolved; nil otherwise.
	HeadPositions []HeadPosition
	// DestinationCoords is the coordinate-parameter destination when no
	// destination file resolved; nil otherwise.
	DestinationCoords *params.Vector3
}

// File returns the resolved state for a kind.
func (s *Set) File(kind types.AuxKind) *types.AuxFile {
	return s.Files[kind]
}

// Resolver resolves auxiliary inputs and persists provenance copies.
type Resolver struct {
	store  store.Store
	logger *log.Logger
	sink   RecordSink
}

// NewResolver creates a resolver writing copies to st and warnings to sink.
func NewResolver(st store.Store, logger *log.Logger, sink RecordSink) *Resolver {
	return &Resolver{store: st, logger: logger, sink: sink}
}

// ResolveAll resolves every auxiliary kind in fixed order, then applies the
// cross-kind rules: head-position content must parse, and the destination
// file is mutually exclusive with the destination coordinate parameter.
//
// Missing optional files downgrade to warnings; only malformed or
// conflicting inputs (and output-area failures) return an error.
func (r *Resolver) ResolveAll(ctx context.Context, srcs Sources, p *params.Params) (*Set, error) {
	set := &Set{Files: make(map[types.AuxKind]*types.AuxFile, len(types.AllAuxKinds))}

	for _, kind := range types.AllAuxKinds {
		file, err := r.resolveOne(ctx, kind, srcs[kind], set)
		if err != nil {
			return nil, err
		}
		set.Files[kind] = file
	}

	dest := set.Files[types.AuxDestination]
	if dest.Resolved() && p.Destination != nil {
		return nil, types.NewValidationError("destination",
			"destination file and destination parameter are mutually exclusive")
	}
	if !dest.Resolved() && p.Destination != nil {
		set.DestinationCoords = p.Destination
	}

	return set, nil
}

// resolveOne applies the precedence rule for a single kind:
// existing override > existing primary > absent.
func (r *Resolver) resolveOne(ctx context.Context, kind types.AuxKind, src Source, set *Set) (*types.AuxFile, error) {
	spec := kindSpecs[kind]
	file := &types.AuxFile{Kind: kind}

	winner, fromOverride := r.pickWinner(kind, src)
	if winner == "" {
		r.logger.Debug("auxiliary input absent", map[string]any{"kind": string(kind)})
		return file, nil
	}

	// Head-position content must parse before it is copied or used.
	if kind == types.AuxHeadPos {
		samples, err := ParseHeadPositions(winner)
		if err != nil {
			return nil, err
		}
		set.HeadPositions = samples
	}

	file.Path = winner
	file.FromOverride = fromOverride

	// Overrides are always persisted; a winning primary only for kinds
	// that require persisted provenance.
	if fromOverride || spec.copyPrimary {
		if err := r.copyToOutput(ctx, winner, spec.canonical); err != nil {
			return nil, err
		}
		file.Copied = true
	}

	r.logger.Info("auxiliary input resolved", map[string]any{
		"kind":          string(kind),
		"path":          winner,
		"from_override": fromOverride,
		"copied":        file.Copied,
	})
	return file, nil
}

// pickWinner selects the effective candidate path and emits a warning for
// every supplied candidate that does not exist on disk.
func (r *Resolver) pickWinner(kind types.AuxKind, src Source) (path string, fromOverride bool) {
	if src.HasOverride && src.Override != "" {
		if fileExists(src.Override) {
			// An existing override discards any primary candidate.
			return src.Override, true
		}
		r.sink.Warning(fmt.Sprintf("%s override file %s does not exist; falling back", kind, src.Override))
	}

	if src.Primary != "" {
		if fileExists(src.Primary) {
			return src.Primary, false
		}
		r.sink.Warning(fmt.Sprintf("%s file %s does not exist; continuing without it", kind, src.Primary))
	}

	return "", false
}

func (r *Resolver) copyToOutput(ctx context.Context, src, canonical string) error {
	f, err := os.Open(src)
	if err != nil {
		return store.WrapPutError(err, src)
	}
	defer iox.DiscardClose(f)

	return r.store.Put(ctx, canonical, f)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
