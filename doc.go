// Package gpgpu describes general-purpose GPU compute work as plain records.
//
// # Overview
//
// A [ComputeCommand] is one request for "old-school" GPGPU work: a fragment
// shader kernel is drawn over a viewport quad into an output texture, with
// the kernel's inputs bound as uniforms and sampled textures. The command is
// only a description. It performs no GPU work itself; [ComputeCommand.Execute]
// hands it to an [Engine], which compiles, binds, draws and releases.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gpgpu"
//	    "github.com/gogpu/gpgpu/engine"
//	    "github.com/gogpu/gpgpu/shader"
//	)
//
//	eng, err := engine.New(adapter, nil)
//	if err != nil {
//	    return err
//	}
//	defer eng.Destroy()
//
//	cmd := gpgpu.NewComputeCommand(&gpgpu.Options{
//	    FragmentShaderSource: shader.NewSource(kernelWGSL),
//	    UniformMap: gpgpu.UniformMap{
//	        "scale": gpgpu.UniformFunc(func() any { return float32(2) }),
//	    },
//	    OutputTexture: out,
//	})
//	if err := cmd.Execute(eng); err != nil {
//	    return err
//	}
//
// # Resource Ownership
//
// GPU resources reachable from a command (its vertex array, its shader
// program, the program compiled from its source) are released by the engine
// after dispatch unless [ComputeCommand.Persists] is set. A persistent command
// may be executed any number of times and is discarded explicitly through the
// engine. The output texture always belongs to the caller.
//
// # Architecture
//
// The module is organized into:
//   - gpgpu: the command record, pass tags and uniform providers
//   - gpucore: resource IDs and the GPU adapter abstraction
//   - geometry: vertex arrays and the default viewport quad
//   - shader: WGSL sources, naga compilation, program cache, uniform packing
//   - engine: the reference compute engine
//   - frame: per-frame command queue with pass routing
//   - backend: registry of adapter backends
//   - backend/native, backend/trace: adapters over wgpu/hal and a recorder
//   - cmd/gpgpu: CLI to compile kernels and run YAML compute jobs
package gpgpu
