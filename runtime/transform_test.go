package runtime

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neuropipe-io/maxprep/log"
	"github.com/neuropipe-io/maxprep/params"
	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/types"
)

// writeScript writes an executable shell script standing in for the
// external filter routine.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "maxwell.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func emptyAuxSet() *resolve.Set {
	files := make(map[types.AuxKind]*types.AuxFile, len(types.AllAuxKinds))
	for _, kind := range types.AllAuxKinds {
		files[kind] = &types.AuxFile{Kind: kind}
	}
	return &resolve.Set{Files: files}
}

func TestExecTransform_Success(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "cat > /dev/null\nexit 0\n")

	p, err := params.Normalize(map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	rec := &types.Recording{DataPath: "/in/raw.fif", BadChannels: []string{"MEG2443"}}
	tr := NewExecTransform(bin, dir, log.NewLoggerWithWriter("run-test", "", io.Discard))

	out, err := tr.Apply(context.Background(), rec, emptyAuxSet(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.DataPath != filepath.Join(dir, OutputRecordingName) {
		t.Errorf("DataPath = %q", out.DataPath)
	}
	last := out.LatestProc()
	if last == nil || !last.SSSApplied {
		t.Errorf("provenance = %+v", last)
	}
	if !strings.HasPrefix(last.CreatedBy, "maxprep ") {
		t.Errorf("CreatedBy = %q", last.CreatedBy)
	}
}

func TestExecTransform_JobPayload(t *testing.T) {
	dir := t.TempDir()
	jobFile := filepath.Join(dir, "job.json")
	bin := writeScript(t, dir, "cat > "+jobFile+"\nexit 0\n")

	p, err := params.Normalize(map[string]any{params.KeySTDuration: "10"})
	if err != nil {
		t.Fatal(err)
	}
	rec := &types.Recording{DataPath: "/in/raw.fif", BadChannels: []string{"MEG2443"}}
	aux := emptyAuxSet()
	aux.Files[types.AuxCalibration] = &types.AuxFile{Kind: types.AuxCalibration, Path: "/in/cal.dat"}
	aux.DestinationCoords = &params.Vector3{0, 0, 0.04}

	tr := NewExecTransform(bin, dir, log.NewLoggerWithWriter("run-test", "", io.Discard))
	if _, err := tr.Apply(context.Background(), rec, aux, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(jobFile)
	if err != nil {
		t.Fatal(err)
	}
	var job map[string]any
	if err := json.Unmarshal(data, &job); err != nil {
		t.Fatalf("job payload is not valid JSON: %v", err)
	}

	if job["recording"] != "/in/raw.fif" {
		t.Errorf("recording = %v", job["recording"])
	}
	if job["calibration"] != "/in/cal.dat" {
		t.Errorf("calibration = %v", job["calibration"])
	}
	if _, ok := job["cross_talk"]; ok {
		t.Error("unresolved kinds should be omitted from the payload")
	}
	dest, _ := job["destination"].([]any)
	if len(dest) != 3 || dest[2] != 0.04 {
		t.Errorf("destination = %v", job["destination"])
	}
	bags, _ := job["params"].(map[string]any)
	if bags[params.KeySTDuration] != float64(10) {
		t.Errorf("params.st_duration = %v", bags[params.KeySTDuration])
	}
}

func TestExecTransform_FailureSurfacesStderr(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "cat > /dev/null\necho 'ValueError: bad coil definitions' >&2\nexit 3\n")

	p, err := params.Normalize(map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	rec := &types.Recording{DataPath: "/in/raw.fif"}
	tr := NewExecTransform(bin, dir, log.NewLoggerWithWriter("run-test", "", io.Discard))

	_, err = tr.Apply(context.Background(), rec, emptyAuxSet(), p)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "ValueError: bad coil definitions") {
		t.Errorf("error should carry the routine's stderr verbatim, got: %v", err)
	}
}

func TestExecTransform_MissingBinary(t *testing.T) {
	p, err := params.Normalize(map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	tr := NewExecTransform("/nonexistent/maxwell", t.TempDir(), log.NewLoggerWithWriter("run-test", "", io.Discard))

	_, err = tr.Apply(context.Background(), &types.Recording{DataPath: "x"}, emptyAuxSet(), p)
	if err == nil {
		t.Fatal("expected error for missing executable")
	}
}

func TestStubTransform_DerivedProvenance(t *testing.T) {
	st := &StubTransform{}
	stDur := 10.0
	p := &params.Params{STDuration: &stDur, STOnly: true}

	out, err := st.Apply(context.Background(), &types.Recording{DataPath: "x"}, emptyAuxSet(), p)
	if err != nil {
		t.Fatal(err)
	}
	last := out.LatestProc()
	if last.SSSApplied {
		t.Error("st_only output should not carry the sss flag")
	}
	if !last.TSSSApplied {
		t.Error("st_duration set should carry the tsss flag")
	}
}
