// Package config handles parameter-bag document loading for maxprep run.
//
// The document is the flat key-value configuration produced by the
// orchestration environment. YAML is a superset of JSON, so both the
// legacy config.json documents and hand-written YAML load unchanged.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RawConfig is the heterogeneous parameter bag as loaded from disk.
// Values may be strings, numbers, booleans, lists, or the empty-string
// sentinel meaning "absent". It is read-only after loading; normalization
// produces a typed copy and never mutates the bag.
type RawConfig map[string]any

// Load reads a config document, expands environment variables, and
// unmarshals into a RawConfig. Unknown keys are kept as-is; downstream
// consumers pick the keys they know and ignore the rest.
func Load(path string) (RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	var raw RawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("invalid config document %s: %w", path, err)
	}
	if raw == nil {
		raw = RawConfig{}
	}

	return raw, nil
}

// String returns the string value for key, or "" when the key is absent,
// null, or not a string. Used for the auxiliary path fields.
func (c RawConfig) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Has reports whether the key is present in the document, regardless of
// its value. Override keys are only present in override-capable contexts,
// so presence itself is meaningful.
func (c RawConfig) Has(key string) bool {
	_, ok := c[key]
	return ok
}
