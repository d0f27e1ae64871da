// Package gpucore provides the GPU abstractions shared by the gpgpu packages.
//
// This package defines the [GPUAdapter] interface, which abstracts over the
// GPU backend that actually owns device resources, allowing the compute engine
// to run against:
//   - gogpu/wgpu HAL devices (backend/native)
//   - a device-less recording adapter (backend/trace) for tests and dry runs
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID], etc.).
// The [GPUAdapter] interface provides creation and destruction methods for
// each resource type. Adapters are responsible for tracking the mapping
// between IDs and actual GPU resources.
//
// IDs are never reused by an adapter. Using an ID after it was destroyed is
// undefined behavior; adapters may report it as an error but are not required
// to.
//
// # Render Passes
//
// A GPGPU dispatch is a single render pass that draws geometry with a
// fragment "kernel" into a target texture. [GPUAdapter.BeginRenderPass]
// returns a [RenderPassEncoder] which records the draw; [GPUAdapter.Submit]
// sends the recorded work to the device.
//
//	pass, err := adapter.BeginRenderPass(&gpucore.RenderPassDesc{
//	    Target: output.ID,
//	    Clear:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	pass.SetPipeline(program.Pipeline)
//	pass.SetVertexBuffer(va.VertexBuffer)
//	pass.Draw(va.VertexCount)
//	pass.End()
//	return adapter.Submit()
package gpucore
