// Package recording loads the recording metadata sidecar.
//
// The sidecar is the pipeline's view of the multichannel recording: the
// raw data path, the bad-channel set, and the processing history. The
// numerical payload itself is never opened by this stage — it is handed
// to the external transform by path.
package recording

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neuropipe-io/maxprep/types"
)

// Load reads a recording metadata sidecar.
func Load(path string) (*types.Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("recording sidecar not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read recording sidecar %q: %w", path, err)
	}

	var rec types.Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid recording sidecar %s: %w", path, err)
	}

	if rec.DataPath == "" {
		return nil, fmt.Errorf("recording sidecar %s has no data path", path)
	}

	return &rec, nil
}

// Marshal renders a recording sidecar document. Used to persist the
// filtered recording's metadata into the output area.
func Marshal(rec *types.Recording) ([]byte, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal recording sidecar: %w", err)
	}
	return data, nil
}
