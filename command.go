package gpgpu

import (
	"github.com/gogpu/gpgpu/geometry"
	"github.com/gogpu/gpgpu/gpucore"
	"github.com/gogpu/gpgpu/shader"
)

// Engine executes compute commands.
//
// Engines own the GPU work: they compile the kernel, bind uniforms, draw
// into the output texture and release the command's resources afterwards
// unless the command persists.
type Engine interface {
	Execute(cmd *ComputeCommand) error
}

// Options configures a new ComputeCommand. The zero value is valid.
type Options struct {
	VertexArray          *geometry.VertexArray
	FragmentShaderSource *shader.Source
	ShaderProgram        *shader.Program
	UniformMap           UniformMap
	OutputTexture        *gpucore.Texture
	Persists             bool
	Owner                any
}

// ComputeCommand is a request to run a fragment shader kernel over geometry
// into an output texture.
//
// A ComputeCommand is not safe for concurrent mutation. Fields must not be
// changed while Execute is running.
type ComputeCommand struct {
	// VertexArray is the geometry to draw. When nil, the engine draws its
	// default viewport quad.
	VertexArray *geometry.VertexArray

	// FragmentShaderSource is the kernel. It is linked with the engine's
	// default vertex stage (shader.ViewportQuadVS) when ShaderProgram is nil.
	FragmentShaderSource *shader.Source

	// ShaderProgram is a linked program. When set, it is used as is and
	// FragmentShaderSource is ignored.
	ShaderProgram *shader.Program

	// UniformMap supplies uniform values. Providers are evaluated when the
	// command is dispatched, not when it is built.
	UniformMap UniformMap

	// OutputTexture is the render target. When nil, the engine renders into
	// the currently bound target. The texture is never released by the
	// engine.
	OutputTexture *gpucore.Texture

	// Persists keeps the command's GPU resources alive after dispatch so
	// it can be executed again. When false, the engine releases the vertex
	// array and shader program after dispatch and the command must not be
	// reused.
	Persists bool

	// Owner identifies who created the command. It is used for debugging
	// and command filtering only.
	Owner any
}

// NewComputeCommand creates a command from opts. A nil opts is equivalent
// to the zero Options. No validation is performed; incomplete commands are
// rejected by the engine at dispatch.
func NewComputeCommand(opts *Options) *ComputeCommand {
	if opts == nil {
		opts = &Options{}
	}
	return &ComputeCommand{
		VertexArray:          opts.VertexArray,
		FragmentShaderSource: opts.FragmentShaderSource,
		ShaderProgram:        opts.ShaderProgram,
		UniformMap:           opts.UniformMap,
		OutputTexture:        opts.OutputTexture,
		Persists:             opts.Persists,
		Owner:                opts.Owner,
	}
}

// Pass returns the pass the command runs in. It is always PassCompute and
// cannot be changed, including for commands built as composite literals.
func (c *ComputeCommand) Pass() Pass {
	return PassCompute
}

// Execute dispatches the command to engine and returns the engine's error
// unchanged. The command itself is not modified.
func (c *ComputeCommand) Execute(engine Engine) error {
	if engine == nil {
		return ErrNilEngine
	}
	return engine.Execute(c)
}
