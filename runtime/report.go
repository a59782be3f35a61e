package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/neuropipe-io/maxprep/params"
	"github.com/neuropipe-io/maxprep/recording"
	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/store"
	"github.com/neuropipe-io/maxprep/types"
)

// Canonical names of the run's status documents in the output area.
const (
	// ProductName is the processing record consumed by downstream stages.
	ProductName = "product.json"
	// ManifestName is the binary run manifest.
	ManifestName = "manifest.msgpack"
	// OutputSidecarName is the metadata sidecar of the filtered recording.
	OutputSidecarName = "meg.yaml"
)

// productDoc is the on-disk shape of the processing record.
type productDoc struct {
	Entries []types.RecordEntry `json:"maxprep"`
}

// writeProduct persists the processing record as product.json.
func writeProduct(ctx context.Context, st store.Store, entries []types.RecordEntry) error {
	if entries == nil {
		entries = []types.RecordEntry{}
	}
	data, err := json.MarshalIndent(productDoc{Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal processing record: %w", err)
	}
	return st.Put(ctx, ProductName, bytes.NewReader(data))
}

// manifestAux is the per-kind resolution outcome in the manifest.
type manifestAux struct {
	Kind         string `msgpack:"kind"`
	Path         string `msgpack:"path"`
	Canonical    string `msgpack:"canonical,omitempty"`
	Copied       bool   `msgpack:"copied"`
	FromOverride bool   `msgpack:"from_override"`
}

// manifest is the binary run manifest persisted alongside the product.
type manifest struct {
	Version      string         `msgpack:"version"`
	RunID        string         `msgpack:"run_id"`
	Recording    string         `msgpack:"recording"`
	Outcome      string         `msgpack:"outcome"`
	Aux          []manifestAux  `msgpack:"aux"`
	HeadPosCount int            `msgpack:"head_pos_count"`
	Params       map[string]any `msgpack:"params"`
}

// writeManifest persists the run manifest as manifest.msgpack.
func writeManifest(ctx context.Context, st store.Store, runID, recPath string, outcome *Outcome, aux *resolve.Set, p *params.Params) error {
	m := manifest{
		Version:   types.Version,
		RunID:     runID,
		Recording: recPath,
		Outcome:   string(outcome.Status),
	}
	if aux != nil {
		m.HeadPosCount = len(aux.HeadPositions)
		for _, kind := range types.AllAuxKinds {
			f := aux.File(kind)
			if !f.Resolved() {
				continue
			}
			entry := manifestAux{
				Kind:         string(kind),
				Path:         f.Path,
				Copied:       f.Copied,
				FromOverride: f.FromOverride,
			}
			if f.Copied {
				entry.Canonical = resolve.CanonicalName(kind)
			}
			m.Aux = append(m.Aux, entry)
		}
	}
	if p != nil {
		m.Params = p.Bag()
	}

	data, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("cannot marshal run manifest: %w", err)
	}
	return st.Put(ctx, ManifestName, bytes.NewReader(data))
}

// writeOutputSidecar persists the filtered recording's metadata sidecar.
func writeOutputSidecar(ctx context.Context, st store.Store, rec *types.Recording) error {
	data, err := recording.Marshal(rec)
	if err != nil {
		return err
	}
	return st.Put(ctx, OutputSidecarName, bytes.NewReader(data))
}
