// Package store persists run artifacts into the output area.
//
// The output area holds the canonical auxiliary copies (calibration,
// cross-talk, destination, head positions, channels, events), the filtered
// recording written by the transform, and the run's status documents. Two
// backends are provided: a local directory (the default) and S3 for
// orchestrated deployments.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists named artifacts into the run's output area.
// Names are flat: no path separators, no "..".
type Store interface {
	// Put writes the artifact under the given canonical name,
	// overwriting any previous content.
	Put(ctx context.Context, name string, r io.Reader) error
	// Close releases backend resources.
	Close() error
}

// validateName rejects names that would escape the output area.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("artifact name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("artifact name %q must not contain path separators or ..", name)
	}
	return nil
}

// FS is a local-directory output area.
type FS struct {
	dir string
}

// NewFS creates (if needed) the output directory and returns a Store
// backed by it.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapPutError(err, dir)
	}
	return &FS{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FS) Dir() string { return s.dir }

// Put writes the artifact to <dir>/<name>.
func (s *FS) Put(_ context.Context, name string, r io.Reader) error {
	if err := validateName(name); err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return WrapPutError(err, path)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return WrapPutError(err, path)
	}
	if err := f.Close(); err != nil {
		return WrapPutError(err, path)
	}
	return nil
}

// Close implements Store. Local directories need no teardown.
func (s *FS) Close() error { return nil }

// Verify FS implements Store.
var _ Store = (*FS)(nil)

// Stub records Put calls in memory for testing.
type Stub struct {
	mu    sync.Mutex
	Puts  []StubPut
	Fail  error // when set, every Put returns this error
}

// StubPut is one recorded Put call.
type StubPut struct {
	Name string
	Data []byte
}

// NewStub creates a new stub store.
func NewStub() *Stub { return &Stub{} }

// Put implements Store by recording the call.
func (s *Stub) Put(_ context.Context, name string, r io.Reader) error {
	if s.Fail != nil {
		return s.Fail
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Puts = append(s.Puts, StubPut{Name: name, Data: data})
	return nil
}

// Close implements Store.
func (s *Stub) Close() error { return nil }

// Names returns the names written so far, in order.
func (s *Stub) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.Puts))
	for i, p := range s.Puts {
		names[i] = p.Name
	}
	return names
}

// Get returns the last data written under name.
func (s *Stub) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Puts) - 1; i >= 0; i-- {
		if s.Puts[i].Name == name {
			return s.Puts[i].Data, true
		}
	}
	return nil, false
}

// Verify Stub implements Store.
var _ Store = (*Stub)(nil)
