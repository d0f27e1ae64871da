package backend

import (
	"errors"

	"github.com/gogpu/gpgpu/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendNoop is the name of the native HAL backend on the wgpu noop device.
	BackendNoop = "noop"
	// BackendTrace is the name of the device-less recording backend.
	BackendTrace = "trace"
)

// Backend owns a GPU adapter and the device behind it.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "trace", "noop").
	Name() string

	// Init acquires the device and creates the adapter.
	// This should be called before Adapter.
	Init() error

	// Close releases the adapter and the device.
	// The backend should not be used after Close is called.
	Close()

	// Adapter returns the adapter, or nil before Init and after Close.
	Adapter() gpucore.GPUAdapter
}
