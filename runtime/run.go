package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/neuropipe-io/maxprep/log"
	"github.com/neuropipe-io/maxprep/params"
	"github.com/neuropipe-io/maxprep/recording"
	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/store"
	"github.com/neuropipe-io/maxprep/types"
)

// RunConfig carries everything a run needs.
type RunConfig struct {
	// RunID identifies this run in logs and the manifest.
	RunID string
	// RecordingPath locates the recording metadata sidecar.
	RecordingPath string
	// Raw is the loaded parameter document, bookkeeping keys included.
	Raw map[string]any
	// Store is the output area.
	Store store.Store
	// Transform applies the Maxwell filter.
	Transform Transform
	// Logger receives structured progress output.
	Logger *log.Logger
}

// RunResult is the outcome of one run. A failed run is still a result:
// the outcome classifies it and the entries carry the terminal message.
type RunResult struct {
	Outcome *Outcome
	// Recording is the filtered recording's metadata; nil unless the
	// run succeeded.
	Recording *types.Recording
	// Entries is the full processing record in emission order.
	Entries []types.RecordEntry
	// Aux is the auxiliary resolution outcome; nil when the run failed
	// before resolution.
	Aux *resolve.Set
	// Params is the normalized parameter set; nil when normalization
	// itself failed.
	Params   *params.Params
	Duration time.Duration
}

// RunOrchestrator drives a run end to end: normalize, guard, resolve,
// reconcile, transform, persist.
type RunOrchestrator struct {
	cfg RunConfig
}

// NewRunOrchestrator validates the configuration and returns an
// orchestrator ready to execute.
func NewRunOrchestrator(cfg RunConfig) (*RunOrchestrator, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("run id must not be empty")
	}
	if cfg.RecordingPath == "" {
		return nil, fmt.Errorf("recording path must not be empty")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if cfg.Transform == nil {
		return nil, fmt.Errorf("transform must not be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &RunOrchestrator{cfg: cfg}, nil
}

// Execute runs the pipeline stage. Failures are folded into the result:
// the processing record gets its single terminal error entry, the record
// is persisted best-effort, and the outcome classifies the failure. The
// returned error is reserved for faults before the run could start.
func (o *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	record := NewAssembler()
	result := &RunResult{}

	p, err := params.Normalize(o.cfg.Raw)
	if err != nil {
		return o.fail(ctx, result, record, start, err), nil
	}
	result.Params = p

	rec, err := recording.Load(o.cfg.RecordingPath)
	if err != nil {
		return o.fail(ctx, result, record, start, types.NewValidationError("recording", err.Error())), nil
	}

	// Double filtering corrupts the data, so the guard runs before any
	// artifact lands in the output area.
	if err := GuardNotFiltered(rec); err != nil {
		return o.fail(ctx, result, record, start, err), nil
	}

	resolver := resolve.NewResolver(o.cfg.Store, o.cfg.Logger, record)
	aux, err := resolver.ResolveAll(ctx, resolve.SourcesFromConfig(o.cfg.Raw), p)
	if err != nil {
		return o.fail(ctx, result, record, start, err), nil
	}
	result.Aux = aux

	var table resolve.ChannelTable
	if f := aux.File(types.AuxChannels); f.Resolved() {
		table, err = resolve.ReadChannelTable(f.Path)
		if err != nil {
			return o.fail(ctx, result, record, start, err), nil
		}
	}
	ReconcileBadChannels(rec, table, record)

	o.cfg.Logger.Info("applying Maxwell filter", map[string]any{
		"recording":    rec.DataPath,
		"bad_channels": rec.BadChannels,
	})
	filtered, err := o.cfg.Transform.Apply(ctx, rec, aux, p)
	if err != nil {
		return o.fail(ctx, result, record, start, err), nil
	}
	result.Recording = filtered
	record.Success("Maxwell filter was applied successfully.")

	if err := writeOutputSidecar(ctx, o.cfg.Store, filtered); err != nil {
		// The success entry stands — the transform did run — but the
		// run itself degrades to a storage failure.
		return o.fail(ctx, result, record, start, err), nil
	}

	result.Outcome = &Outcome{Status: OutcomeSuccess, Message: "Maxwell filter was applied successfully."}
	result.Entries = record.Entries()
	result.Duration = time.Since(start)

	if err := writeProduct(ctx, o.cfg.Store, result.Entries); err != nil {
		return o.fail(ctx, result, record, start, err), nil
	}
	if err := writeManifest(ctx, o.cfg.Store, o.cfg.RunID, o.cfg.RecordingPath, result.Outcome, aux, p); err != nil {
		return o.fail(ctx, result, record, start, err), nil
	}

	o.cfg.Logger.Info("run complete", map[string]any{
		"duration": result.Duration.String(),
		"entries":  len(result.Entries),
	})
	return result, nil
}

// fail finalizes a failed run: one terminal error entry, best-effort
// persistence of the record and manifest, classified outcome.
func (o *RunOrchestrator) fail(ctx context.Context, result *RunResult, record *Assembler, start time.Time, cause error) *RunResult {
	record.Error(cause.Error())
	result.Outcome = ClassifyFailure(cause)
	result.Entries = record.Entries()
	result.Duration = time.Since(start)
	result.Recording = nil

	o.cfg.Logger.Error("run failed", map[string]any{
		"status": string(result.Outcome.Status),
		"error":  cause.Error(),
	})

	// Downstream stages read the record even for failed runs; a failed
	// write here must not mask the original failure.
	if err := writeProduct(ctx, o.cfg.Store, result.Entries); err != nil {
		o.cfg.Logger.Warn("cannot persist processing record", map[string]any{"error": err.Error()})
	}
	if err := writeManifest(ctx, o.cfg.Store, o.cfg.RunID, o.cfg.RecordingPath, result.Outcome, result.Aux, result.Params); err != nil {
		o.cfg.Logger.Warn("cannot persist run manifest", map[string]any{"error": err.Error()})
	}
	return result
}
