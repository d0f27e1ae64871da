package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/gpgpu/backend/trace"
	"github.com/gogpu/gpgpu/gpucore"
)

const gradientKernel = `
@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv.x, uv.y, 0.0, 1.0);
}
`

func TestCompileToSPIRV(t *testing.T) {
	d := &ProgramDesc{Fragment: NewSource(gradientKernel)}
	spirv, err := CompileToSPIRV(d.Text())
	if err != nil {
		t.Fatalf("CompileToSPIRV() error = %v", err)
	}
	if len(spirv) == 0 {
		t.Fatal("CompileToSPIRV() returned no words")
	}
	// SPIR-V magic number.
	if spirv[0] != 0x07230203 {
		t.Errorf("first word = %#x, want SPIR-V magic 0x07230203", spirv[0])
	}
}

func TestCompileToSPIRV_Invalid(t *testing.T) {
	_, err := CompileToSPIRV("this is not wgsl")
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("error = %v, want ErrCompile", err)
	}
}

func TestNagaCompiler_Compile(t *testing.T) {
	a := trace.New()
	c := NewNagaCompiler()

	p, err := c.Compile(a, &ProgramDesc{
		Label:    "gradient",
		Fragment: NewSource(gradientKernel),
		Layout:   testLayout,
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !a.Alive(uint64(p.Module)) || !a.Alive(uint64(p.Pipeline)) {
		t.Error("compiled program resources not alive")
	}
	if p.Layout.Stride != testLayout.Stride {
		t.Errorf("Layout.Stride = %d, want %d", p.Layout.Stride, testLayout.Stride)
	}
}

func TestNagaCompiler_Errors(t *testing.T) {
	t.Run("no fragment", func(t *testing.T) {
		_, err := NewNagaCompiler().Compile(trace.New(), &ProgramDesc{})
		if !errors.Is(err, ErrNoFragment) {
			t.Errorf("error = %v, want ErrNoFragment", err)
		}
	})

	t.Run("invalid source leaves nothing allocated", func(t *testing.T) {
		a := trace.New()
		_, err := NewNagaCompiler().Compile(a, &ProgramDesc{Fragment: NewSource("fn (")})
		if !errors.Is(err, ErrCompile) {
			t.Errorf("error = %v, want ErrCompile", err)
		}
		if len(a.Leaks()) != 0 {
			t.Errorf("leaked resources: %v", a.Leaks())
		}
	})

	t.Run("pipeline failure releases module", func(t *testing.T) {
		a := trace.New()
		a.FailNext(gpucore.KindRenderPipeline, nil)
		_, err := NewNagaCompiler().Compile(a, &ProgramDesc{Fragment: NewSource(gradientKernel), Layout: testLayout})
		if !errors.Is(err, trace.ErrInjected) {
			t.Errorf("error = %v, want injected failure", err)
		}
		if n := a.Live(gpucore.KindShaderModule); n != 0 {
			t.Errorf("live shader modules = %d, want 0", n)
		}
	})
}
