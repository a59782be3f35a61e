package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neuropipe-io/maxprep/log"
	"github.com/neuropipe-io/maxprep/params"
	"github.com/neuropipe-io/maxprep/store"
	"github.com/neuropipe-io/maxprep/types"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeSidecar writes a recording metadata sidecar and returns its path.
func writeSidecar(t *testing.T, dir string, rec *types.Recording) string {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	// JSON is valid YAML, matching how orchestrated sidecars arrive.
	return writeTemp(t, dir, "meg.yaml", string(data))
}

type fixture struct {
	store     *store.Stub
	transform *StubTransform
	orch      *RunOrchestrator
}

func newFixture(t *testing.T, recPath string, raw map[string]any) *fixture {
	t.Helper()
	f := &fixture{
		store:     store.NewStub(),
		transform: &StubTransform{},
	}
	orch, err := NewRunOrchestrator(RunConfig{
		RunID:         "run-test",
		RecordingPath: recPath,
		Raw:           raw,
		Store:         f.store,
		Transform:     f.transform,
		Logger:        log.NewLoggerWithWriter("run-test", recPath, io.Discard),
	})
	if err != nil {
		t.Fatal(err)
	}
	f.orch = orch
	return f
}

func recordTypes(entries []types.RecordEntry) []types.RecordEntryType {
	out := make([]types.RecordEntryType, len(entries))
	for i, e := range entries {
		out[i] = e.Type
	}
	return out
}

func TestExecute_SuccessAllAbsentAux(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		BadChannels: []string{"MEG2443"},
	})

	f := newFixture(t, recPath, map[string]any{})
	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome.Status != OutcomeSuccess {
		t.Fatalf("Status = %s, want success (message: %s)", result.Outcome.Status, result.Outcome.Message)
	}
	if f.transform.Calls != 1 {
		t.Errorf("transform calls = %d, want 1", f.transform.Calls)
	}

	// Exactly one entry: the terminal success.
	entries := result.Entries
	if len(entries) != 1 || entries[0].Type != types.RecordSuccess {
		t.Fatalf("entries = %v, want exactly one success", recordTypes(entries))
	}
	if entries[0].Msg != "Maxwell filter was applied successfully." {
		t.Errorf("success message = %q", entries[0].Msg)
	}

	// Status documents persisted.
	for _, name := range []string{OutputSidecarName, ProductName, ManifestName} {
		if _, ok := f.store.Get(name); !ok {
			t.Errorf("missing persisted artifact %s, got %v", name, f.store.Names())
		}
	}

	// Output provenance: one new history entry, plain SSS by default.
	if result.Recording == nil {
		t.Fatal("successful run should carry the filtered recording")
	}
	last := result.Recording.LatestProc()
	if last == nil || !last.SSSApplied || last.TSSSApplied {
		t.Errorf("provenance = %+v, want sss without tsss", last)
	}
}

func TestExecute_TSSSProvenanceWhenSTDurationSet(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		BadChannels: []string{"MEG2443"},
	})

	f := newFixture(t, recPath, map[string]any{params.KeySTDuration: "10"})
	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome.Status != OutcomeSuccess {
		t.Fatalf("Status = %s: %s", result.Outcome.Status, result.Outcome.Message)
	}

	last := result.Recording.LatestProc()
	if last == nil || !last.TSSSApplied {
		t.Errorf("provenance = %+v, want tsss flag set", last)
	}
}

func TestExecute_PreconditionAbort(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		ProcHistory: []types.ProcRecord{{SSSApplied: true}},
	})

	f := newFixture(t, recPath, map[string]any{})
	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("failed runs fold into the result, got error: %v", err)
	}

	if result.Outcome.Status != OutcomePreconditionFailure {
		t.Fatalf("Status = %s, want precondition failure", result.Outcome.Status)
	}
	if f.transform.Calls != 0 {
		t.Error("transform must not run on a precondition failure")
	}

	entries := result.Entries
	if len(entries) != 1 || entries[0].Type != types.RecordError {
		t.Fatalf("entries = %v, want exactly one error", recordTypes(entries))
	}
	if !strings.Contains(entries[0].Msg, "already Maxwell-filtered") {
		t.Errorf("error entry = %q", entries[0].Msg)
	}

	// The guard runs before resolution, so no provenance copies land.
	for _, name := range f.store.Names() {
		if name != ProductName && name != ManifestName {
			t.Errorf("unexpected artifact %s written before the guard", name)
		}
	}
	// The record is still persisted for downstream consumers.
	if _, ok := f.store.Get(ProductName); !ok {
		t.Error("product.json should be persisted even on failure")
	}
}

func TestExecute_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{DataPath: filepath.Join(dir, "raw.fif")})

	f := newFixture(t, recPath, map[string]any{params.KeyDestination: "1, 2"})
	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome.Status != OutcomeValidationFailure {
		t.Fatalf("Status = %s, want validation failure", result.Outcome.Status)
	}
	if f.transform.Calls != 0 {
		t.Error("transform must not run on invalid parameters")
	}
	if len(result.Entries) != 1 || result.Entries[0].Type != types.RecordError {
		t.Errorf("entries = %v, want exactly one error", recordTypes(result.Entries))
	}
}

func TestExecute_MissingSidecarIsValidation(t *testing.T) {
	f := newFixture(t, "/nonexistent/meg.yaml", map[string]any{})
	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome.Status != OutcomeValidationFailure {
		t.Errorf("Status = %s, want validation failure", result.Outcome.Status)
	}
}

func TestExecute_TransformFailurePropagatedVerbatim(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		BadChannels: []string{"MEG2443"},
	})

	f := newFixture(t, recPath, map[string]any{})
	f.transform.Err = errors.New("ValueError: st_duration too short")

	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Outcome.Status != OutcomeTransformFailure {
		t.Fatalf("Status = %s, want transform failure", result.Outcome.Status)
	}
	if result.Outcome.Message != "ValueError: st_duration too short" {
		t.Errorf("message should be the routine's own text, got %q", result.Outcome.Message)
	}
	if len(result.Entries) != 1 || result.Entries[0].Type != types.RecordError {
		t.Errorf("entries = %v, want exactly one error", recordTypes(result.Entries))
	}
}

func TestExecute_ResolutionWarningsPrecedeSuccess(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		BadChannels: []string{"MEG2443"},
	})

	raw := map[string]any{
		"calibration": filepath.Join(dir, "missing_cal.dat"),
	}
	f := newFixture(t, recPath, raw)

	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome.Status != OutcomeSuccess {
		t.Fatalf("missing optional file should not fail the run: %s", result.Outcome.Message)
	}

	got := recordTypes(result.Entries)
	if len(got) != 2 || got[0] != types.RecordWarning || got[1] != types.RecordSuccess {
		t.Errorf("entries = %v, want [warning success]", got)
	}
}

func TestExecute_ChannelTableDrivesTransformInput(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		BadChannels: []string{"MEG0111"},
	})
	channels := writeTemp(t, dir, "channels.tsv",
		"name\tstatus\nMEG0111\tgood\nMEG2443\tbad\n")

	f := newFixture(t, recPath, map[string]any{"channels": channels})
	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome.Status != OutcomeSuccess {
		t.Fatalf("Status = %s: %s", result.Outcome.Status, result.Outcome.Message)
	}

	// The transform saw the reconciled set, not the recording's original.
	if f.transform.LastRec == nil {
		t.Fatal("transform was not invoked")
	}
	bad := f.transform.LastRec.BadChannels
	if len(bad) != 1 || bad[0] != "MEG2443" {
		t.Errorf("transform bad channels = %v, want [MEG2443]", bad)
	}

	// Mismatch warning then success.
	got := recordTypes(result.Entries)
	if len(got) != 2 || got[0] != types.RecordWarning || got[1] != types.RecordSuccess {
		t.Errorf("entries = %v, want [warning success]", got)
	}
}

func TestExecute_StorageFailureAfterTransform(t *testing.T) {
	dir := t.TempDir()
	recPath := writeSidecar(t, dir, &types.Recording{
		DataPath:    filepath.Join(dir, "raw.fif"),
		BadChannels: []string{"MEG2443"},
	})

	f := newFixture(t, recPath, map[string]any{})
	f.store.Fail = store.WrapPutError(errors.New("no space left on device"), "/out/meg.yaml")

	result, err := f.orch.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome.Status != OutcomeStorageFailure {
		t.Errorf("Status = %s, want storage failure", result.Outcome.Status)
	}
	if f.transform.Calls != 1 {
		t.Errorf("transform calls = %d, want 1", f.transform.Calls)
	}
	// The transform did succeed, so the record keeps the success entry and
	// appends the terminal storage error.
	got := recordTypes(result.Entries)
	if len(got) != 2 || got[0] != types.RecordSuccess || got[1] != types.RecordError {
		t.Errorf("entries = %v, want [success error]", got)
	}
}

func TestNewRunOrchestrator_Validation(t *testing.T) {
	logger := log.NewLoggerWithWriter("run-test", "", io.Discard)
	base := RunConfig{
		RunID:         "run-test",
		RecordingPath: "meg.yaml",
		Raw:           map[string]any{},
		Store:         store.NewStub(),
		Transform:     &StubTransform{},
		Logger:        logger,
	}

	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"empty run id", func(c *RunConfig) { c.RunID = "" }},
		{"empty recording path", func(c *RunConfig) { c.RecordingPath = "" }},
		{"nil store", func(c *RunConfig) { c.Store = nil }},
		{"nil transform", func(c *RunConfig) { c.Transform = nil }},
		{"nil logger", func(c *RunConfig) { c.Logger = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewRunOrchestrator(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
