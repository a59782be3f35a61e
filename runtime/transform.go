package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/neuropipe-io/maxprep/log"
	"github.com/neuropipe-io/maxprep/params"
	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/types"
)

// OutputRecordingName is the canonical name of the filtered recording
// inside the output area.
const OutputRecordingName = "meg.fif"

// Transform applies the Maxwell filter to a conditioned recording.
// The numerics are an opaque external collaborator: implementations
// return a new recording or propagate the routine's failure verbatim.
type Transform interface {
	Apply(ctx context.Context, rec *types.Recording, aux *resolve.Set, p *params.Params) (*types.Recording, error)
}

// transformJob is the payload handed to the external filter executable.
type transformJob struct {
	Recording   string   `json:"recording"`
	Output      string   `json:"output"`
	BadChannels []string `json:"bad_channels"`

	Calibration     string          `json:"calibration,omitempty"`
	CrossTalk       string          `json:"cross_talk,omitempty"`
	HeadPos         string          `json:"head_pos,omitempty"`
	DestinationFile string          `json:"destination_file,omitempty"`
	Destination     []float64       `json:"destination,omitempty"`
	Params          map[string]any  `json:"params"`
}

// ExecTransform invokes an external maxwell-filter executable.
// The job payload is written to the executable's stdin as JSON; stderr is
// captured and surfaced verbatim on failure.
type ExecTransform struct {
	binPath string
	outDir  string
	logger  *log.Logger
}

// NewExecTransform creates an exec-backed transform writing the filtered
// recording into outDir.
func NewExecTransform(binPath, outDir string, logger *log.Logger) *ExecTransform {
	return &ExecTransform{binPath: binPath, outDir: outDir, logger: logger}
}

// Apply implements Transform.
func (t *ExecTransform) Apply(ctx context.Context, rec *types.Recording, aux *resolve.Set, p *params.Params) (*types.Recording, error) {
	outPath := filepath.Join(t.outDir, OutputRecordingName)

	job := transformJob{
		Recording:   rec.DataPath,
		Output:      outPath,
		BadChannels: rec.BadChannels,
		Params:      p.Bag(),
	}
	if f := aux.File(types.AuxCalibration); f.Resolved() {
		job.Calibration = f.Path
	}
	if f := aux.File(types.AuxCrossTalk); f.Resolved() {
		job.CrossTalk = f.Path
	}
	if f := aux.File(types.AuxHeadPos); f.Resolved() {
		job.HeadPos = f.Path
	}
	if f := aux.File(types.AuxDestination); f.Resolved() {
		job.DestinationFile = f.Path
	} else if aux.DestinationCoords != nil {
		job.Destination = []float64{
			aux.DestinationCoords[0], aux.DestinationCoords[1], aux.DestinationCoords[2],
		}
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal transform job: %w", err)
	}

	t.logger.Info("invoking transform", map[string]any{
		"bin":    t.binPath,
		"output": outPath,
	})

	cmd := exec.CommandContext(ctx, t.binPath)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// The routine's failure is opaque to this stage; propagate its
		// own message when it produced one.
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}

	return filteredRecording(rec, p, outPath), nil
}

// filteredRecording builds the metadata view of the transform output:
// same bad channels, history extended with the new provenance entry.
func filteredRecording(rec *types.Recording, p *params.Params, outPath string) *types.Recording {
	return &types.Recording{
		DataPath:    outPath,
		BadChannels: slices.Clone(rec.BadChannels),
		ProcHistory: append(slices.Clone(rec.ProcHistory), types.ProcRecord{
			SSSApplied:  !p.STOnly,
			TSSSApplied: p.STDuration != nil,
			CreatedBy:   "maxprep " + types.Version,
		}),
	}
}

// StubTransform records Apply calls for testing.
type StubTransform struct {
	// Err, when set, is returned from every Apply.
	Err error
	// Result, when set, is returned instead of a derived recording.
	Result *types.Recording

	Calls   int
	LastRec *types.Recording
	LastAux *resolve.Set
}

// Apply implements Transform by recording the call.
func (s *StubTransform) Apply(_ context.Context, rec *types.Recording, aux *resolve.Set, p *params.Params) (*types.Recording, error) {
	s.Calls++
	s.LastRec = rec
	s.LastAux = aux
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return filteredRecording(rec, p, OutputRecordingName), nil
}

// Verify implementations.
var (
	_ Transform = (*ExecTransform)(nil)
	_ Transform = (*StubTransform)(nil)
)
