//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpgpu/backend"
	"github.com/gogpu/gpgpu/gpucore"
)

// init registers the noop HAL backend on package import.
func init() {
	backend.Register(backend.BackendNoop, func() backend.Backend {
		return &NoopBackend{}
	})
}

// NoopBackend runs a HALAdapter on the wgpu noop device. Every HAL call is
// made, but nothing is rendered.
type NoopBackend struct {
	instance hal.Instance
	device   hal.Device
	adapter  *HALAdapter
}

// Name returns the backend identifier.
func (b *NoopBackend) Name() string { return backend.BackendNoop }

// Init opens the first noop adapter.
func (b *NoopBackend) Init() error {
	if b.adapter != nil {
		return nil
	}
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("native: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return backend.ErrBackendNotAvailable
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("native: open noop device: %w", err)
	}

	b.instance = instance
	b.device = openDev.Device
	b.adapter = NewHALAdapter(openDev.Device, openDev.Queue, gputypes.TextureFormatUndefined)
	return nil
}

// Close destroys the adapter's resources, then the device and instance.
func (b *NoopBackend) Close() {
	if b.adapter == nil {
		return
	}
	b.adapter.Destroy()
	b.device.Destroy()
	b.instance.Destroy()
	b.adapter, b.device, b.instance = nil, nil, nil
}

// Adapter returns the adapter, or nil before Init and after Close.
func (b *NoopBackend) Adapter() gpucore.GPUAdapter {
	if b.adapter == nil {
		return nil
	}
	return b.adapter
}
