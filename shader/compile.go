package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/gpgpu/gpucore"
)

// Compilation errors.
var (
	// ErrCompile wraps WGSL compilation failures reported by naga.
	ErrCompile = errors.New("shader: compilation failed")

	// ErrNoFragment is returned when a ProgramDesc carries no kernel.
	ErrNoFragment = errors.New("shader: fragment source is required")
)

// Compiler turns a ProgramDesc into a GPU program.
//
// Implementations must be deterministic: identical descriptors produce
// equivalent programs.
type Compiler interface {
	Compile(adapter gpucore.GPUAdapter, desc *ProgramDesc) (*Program, error)
}

// CompileToSPIRV compiles WGSL source to a SPIR-V uint32 slice.
func CompileToSPIRV(wgslSource string) ([]uint32, error) {
	// Compile WGSL to SPIR-V bytes
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}

// NagaCompiler compiles programs with naga.
type NagaCompiler struct{}

// NewNagaCompiler returns the default compiler.
func NewNagaCompiler() *NagaCompiler {
	return &NagaCompiler{}
}

// Compile compiles desc into a shader module and builds the render pipeline.
// On failure no GPU resources remain allocated.
func (c *NagaCompiler) Compile(adapter gpucore.GPUAdapter, desc *ProgramDesc) (*Program, error) {
	if desc == nil || desc.Fragment == nil {
		return nil, ErrNoFragment
	}

	spirv, err := CompileToSPIRV(desc.Text())
	if err != nil {
		slogger().Warn("shader: compile failed", "label", desc.Label, "err", err)
		return nil, err
	}

	module, err := adapter.CreateShaderModule(spirv, desc.Label)
	if err != nil {
		return nil, fmt.Errorf("shader: create shader module: %w", err)
	}

	pipeline, err := adapter.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Label:              desc.Label,
		Module:             module,
		VertexEntryPoint:   desc.vertexEntry(),
		FragmentEntryPoint: desc.fragmentEntry(),
		Layout:             desc.Layout,
		TextureBindings:    desc.TextureBindings,
	})
	if err != nil {
		adapter.DestroyShaderModule(module)
		return nil, fmt.Errorf("shader: create render pipeline: %w", err)
	}

	slogger().Debug("shader: program compiled",
		"label", desc.Label,
		"spirv_words", len(spirv),
		"textures", desc.TextureBindings)

	return &Program{
		Label:           desc.Label,
		Module:          module,
		Pipeline:        pipeline,
		Layout:          desc.Layout,
		TextureBindings: desc.TextureBindings,
	}, nil
}
