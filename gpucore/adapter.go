package gpucore

import "github.com/gogpu/gputypes"

// GPUAdapter abstracts over different GPU backend implementations.
//
// This interface is the core abstraction that allows the compute engine
// to work with multiple backends (gogpu/wgpu HAL, recording adapters).
// Implementations must be thread-safe for concurrent use.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
type GPUAdapter interface {
	// === Shader Compilation ===

	// CreateShaderModule creates a shader module from SPIR-V bytecode.
	// The SPIR-V is compiled by naga before being passed here.
	//
	// Parameters:
	//   - spirv: SPIR-V bytecode as uint32 words
	//   - label: optional debug label
	//
	// Returns the module ID or an error if module creation fails.
	CreateShaderModule(spirv []uint32, label string) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Buffer Management ===

	// CreateBuffer creates a GPU buffer.
	//
	// Parameters:
	//   - size: buffer size in bytes
	//   - usage: buffer usage flags
	//
	// Returns the buffer ID or an error if allocation fails.
	CreateBuffer(size int, usage gputypes.BufferUsage) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data to a buffer.
	// The data is copied to the GPU immediately or staged for later upload.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// === Texture Management ===

	// CreateTexture creates a 2D GPU texture usable both as a render
	// target and as a sampled texture.
	//
	// Returns the texture ID or an error if allocation fails.
	CreateTexture(width, height int, format gputypes.TextureFormat) (TextureID, error)

	// DestroyTexture releases a GPU texture.
	DestroyTexture(id TextureID)

	// === Pipeline Management ===

	// CreateRenderPipeline creates a render pipeline from a shader module
	// holding both stages.
	CreateRenderPipeline(desc *RenderPipelineDesc) (RenderPipelineID, error)

	// DestroyRenderPipeline releases a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// === Command Recording and Execution ===

	// BeginRenderPass begins a render pass.
	// Returns an encoder for recording draw commands.
	// The encoder must be ended with RenderPassEncoder.End().
	BeginRenderPass(desc *RenderPassDesc) (RenderPassEncoder, error)

	// Submit submits recorded commands to the GPU.
	// Call this after ending all render passes to execute them.
	Submit() error
}

// RenderPassEncoder records draw commands.
//
// Usage:
//  1. Obtain encoder from GPUAdapter.BeginRenderPass()
//  2. Set pipeline, vertex/index buffers and bindings
//  3. Draw
//  4. Call End() to finish recording
//  5. Call GPUAdapter.Submit() to execute
//
// The encoder is single-use and cannot be reused after End().
type RenderPassEncoder interface {
	// SetPipeline sets the active render pipeline.
	SetPipeline(pipeline RenderPipelineID)

	// SetVertexBuffer binds the interleaved vertex buffer.
	SetVertexBuffer(buffer BufferID)

	// SetIndexBuffer binds a uint16 index buffer.
	SetIndexBuffer(buffer BufferID)

	// SetBindings binds the uniform buffer (binding 0) and sampled
	// textures (bindings 1..n). uniforms may be InvalidID when the program
	// has no uniforms.
	SetBindings(uniforms BufferID, textures []TextureID)

	// Draw draws non-indexed vertices.
	Draw(vertexCount uint32)

	// DrawIndexed draws indexed vertices.
	DrawIndexed(indexCount uint32)

	// End finishes the render pass.
	// After this call, the encoder cannot be used again. Errors recorded
	// while encoding are reported here.
	End() error
}
