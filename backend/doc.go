// Package backend provides a registry of GPU adapter backends.
//
// A backend owns a gpucore.GPUAdapter together with whatever device it
// needs. Backends register themselves from init() functions and are selected
// at runtime:
//
//	import (
//		_ "github.com/gogpu/gpgpu/backend/native"
//		_ "github.com/gogpu/gpgpu/backend/trace"
//	)
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	eng, err := engine.New(b.Adapter(), nil)
//
// # Available Backends
//
//   - "noop": the native HAL adapter on the wgpu noop device; exercises the
//     full HAL path without a GPU
//   - "trace": device-less recording adapter for tests and dry runs
//
// Applications that already own a device use native.NewFromProvider
// directly instead of the registry.
package backend
