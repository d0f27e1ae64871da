package trace

import (
	"github.com/gogpu/gpgpu/backend"
	"github.com/gogpu/gpgpu/gpucore"
)

// init registers the trace backend on package import.
func init() {
	backend.Register(backend.BackendTrace, func() backend.Backend {
		return &Backend{}
	})
}

// Backend serves a fresh trace Adapter per Init.
type Backend struct {
	adapter *Adapter
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendTrace }

// Init creates the adapter.
func (b *Backend) Init() error {
	b.adapter = New()
	return nil
}

// Close drops the adapter. Recorded ops stay readable through the Adapter
// returned by Trace.
func (b *Backend) Close() {
	b.adapter = nil
}

// Adapter returns the adapter, or nil before Init and after Close.
func (b *Backend) Adapter() gpucore.GPUAdapter {
	if b.adapter == nil {
		return nil
	}
	return b.adapter
}

// Trace returns the concrete trace adapter for inspection.
func (b *Backend) Trace() *Adapter { return b.adapter }
