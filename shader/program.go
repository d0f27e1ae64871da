package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/gpgpu/gpucore"
)

// Program is a linked GPU program: a shader module holding both stages and
// the render pipeline built from it.
//
// A Program is owned by whoever created it. When it is referenced by a
// non-persistent compute command, the engine executing the command destroys
// it after the dispatch.
type Program struct {
	// Label is an optional debug label.
	Label string

	// Module is the shader module containing both entry points.
	Module gpucore.ShaderModuleID

	// Pipeline is the render pipeline.
	Pipeline gpucore.RenderPipelineID

	// Layout is the vertex layout the pipeline was built for.
	Layout gpucore.VertexLayout

	// TextureBindings is the number of sampled textures the pipeline binds.
	TextureBindings int

	destroyed bool
}

// IsDestroyed reports whether Destroy has been called.
func (p *Program) IsDestroyed() bool {
	return p.destroyed
}

// Destroy releases the pipeline and the shader module in that order.
// It is safe to call more than once.
func (p *Program) Destroy(adapter gpucore.GPUAdapter) {
	if p == nil || p.destroyed {
		return
	}
	if p.Pipeline != gpucore.InvalidID {
		adapter.DestroyRenderPipeline(p.Pipeline)
	}
	if p.Module != gpucore.InvalidID {
		adapter.DestroyShaderModule(p.Module)
	}
	p.destroyed = true
}

// ProgramDesc describes a program to compile.
type ProgramDesc struct {
	// Label is an optional debug label.
	Label string

	// VertexShader is the WGSL vertex stage. Empty selects ViewportQuadVS.
	VertexShader string

	// VertexEntryPoint is the vertex entry point. Empty selects
	// DefaultVertexEntryPoint.
	VertexEntryPoint string

	// Fragment is the kernel.
	Fragment *Source

	// Layout is the vertex layout of the geometry the program draws.
	Layout gpucore.VertexLayout

	// TextureBindings is the number of sampled textures the kernel reads.
	TextureBindings int
}

func (d *ProgramDesc) vertexShader() string {
	if d.VertexShader == "" {
		return ViewportQuadVS
	}
	return d.VertexShader
}

func (d *ProgramDesc) vertexEntry() string {
	if d.VertexEntryPoint == "" {
		return DefaultVertexEntryPoint
	}
	return d.VertexEntryPoint
}

// Text returns the single WGSL module compiled for the program: the vertex
// stage followed by the kernel.
func (d *ProgramDesc) Text() string {
	vs := d.vertexShader()
	var b strings.Builder
	b.Grow(len(vs) + 1)
	b.WriteString(vs)
	if !strings.HasSuffix(vs, "\n") {
		b.WriteByte('\n')
	}
	if d.Fragment != nil {
		b.WriteString(d.Fragment.Text())
	}
	return b.String()
}

// Key identifies programs that compile to identical pipelines.
func (d *ProgramDesc) Key() string {
	var b strings.Builder
	b.WriteString(d.Text())
	fmt.Fprintf(&b, "\x00%s|%s|%d|%d", d.vertexEntry(), d.fragmentEntry(), d.TextureBindings, d.Layout.Stride)
	for _, a := range d.Layout.Attributes {
		fmt.Fprintf(&b, "|%d:%d:%d", a.Location, a.Format, a.Offset)
	}
	return b.String()
}

func (d *ProgramDesc) fragmentEntry() string {
	if d.Fragment == nil {
		return DefaultFragmentEntryPoint
	}
	return d.Fragment.Entry()
}
