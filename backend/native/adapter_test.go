//go:build !nogpu

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpgpu"
	"github.com/gogpu/gpgpu/backend"
	"github.com/gogpu/gpgpu/engine"
	"github.com/gogpu/gpgpu/geometry"
	"github.com/gogpu/gpgpu/gpucore"
	"github.com/gogpu/gpgpu/shader"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newNoopAdapter(t *testing.T) *HALAdapter {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	a := NewHALAdapter(device, queue, gputypes.TextureFormatUndefined)
	t.Cleanup(func() {
		a.Destroy()
		cleanup()
	})
	return a
}

// mockProvider implements gpucontext.DeviceProvider and, optionally, the
// HAL accessors.
type mockProvider struct {
	device any
	queue  any
	format gputypes.TextureFormat
}

func (p *mockProvider) Device() gpucontext.Device             { return nil }
func (p *mockProvider) Queue() gpucontext.Queue               { return nil }
func (p *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *mockProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *mockProvider) HalDevice() any                        { return p.device }
func (p *mockProvider) HalQueue() any                         { return p.queue }

// plainProvider has no HAL accessors.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }

func TestNewFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	a, err := NewFromProvider(&mockProvider{device: device, queue: queue, format: gputypes.TextureFormatBGRA8Unorm})
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	if a.TargetFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("TargetFormat() = %v, want surface format", a.TargetFormat())
	}

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"nil", nil},
		{"no HAL accessors", plainProvider{}},
		{"wrong device type", &mockProvider{device: "device", queue: queue}},
		{"nil queue", &mockProvider{device: device}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFromProvider(tt.provider); !errors.Is(err, ErrNotHALProvider) {
				t.Errorf("NewFromProvider() error = %v, want ErrNotHALProvider", err)
			}
		})
	}
}

func TestNewHALAdapter_DefaultFormat(t *testing.T) {
	a := newNoopAdapter(t)
	if a.TargetFormat() != DefaultTargetFormat {
		t.Errorf("TargetFormat() = %v, want %v", a.TargetFormat(), DefaultTargetFormat)
	}
}

func TestBindGroupLayoutEntries(t *testing.T) {
	entries := bindGroupLayoutEntries(2)
	if len(entries) != 5 {
		t.Fatalf("len(entries) = %d, want 5", len(entries))
	}
	if entries[0].Binding != 0 || entries[0].Buffer == nil {
		t.Error("entry 0 is not the uniform buffer")
	}
	for i, want := range []struct {
		binding uint32
		texture bool
	}{{1, true}, {2, false}, {3, true}, {4, false}} {
		e := entries[i+1]
		if e.Binding != want.binding {
			t.Errorf("entry %d binding = %d, want %d", i+1, e.Binding, want.binding)
		}
		if (e.Texture != nil) != want.texture || (e.Sampler != nil) == want.texture {
			t.Errorf("entry %d has wrong resource kind", i+1)
		}
	}
	if got := len(bindGroupLayoutEntries(0)); got != 1 {
		t.Errorf("len(bindGroupLayoutEntries(0)) = %d, want 1", got)
	}
}

func TestVertexBufferLayouts(t *testing.T) {
	layouts := vertexBufferLayouts(geometry.ViewportQuadLayout)
	if len(layouts) != 1 {
		t.Fatalf("len(layouts) = %d, want 1", len(layouts))
	}
	l := layouts[0]
	if l.ArrayStride != 16 || l.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("layout = stride %d step %v", l.ArrayStride, l.StepMode)
	}
	if len(l.Attributes) != 2 || l.Attributes[1].ShaderLocation != 1 || l.Attributes[1].Offset != 8 {
		t.Errorf("attributes = %+v", l.Attributes)
	}
}

func TestHALAdapter_Resources(t *testing.T) {
	a := newNoopAdapter(t)

	buf, err := a.CreateBuffer(32, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if err := a.WriteBuffer(buf, 16, make([]byte, 16)); err != nil {
		t.Errorf("WriteBuffer() error = %v", err)
	}
	if err := a.WriteBuffer(buf, 24, make([]byte, 16)); err == nil {
		t.Error("WriteBuffer() past the end succeeded")
	}
	a.DestroyBuffer(buf)
	if err := a.WriteBuffer(buf, 0, []byte{1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("WriteBuffer() after destroy error = %v, want ErrUnknownResource", err)
	}
	a.DestroyBuffer(buf)

	if _, err := a.CreateBuffer(0, gputypes.BufferUsageVertex); err == nil {
		t.Error("CreateBuffer(0) succeeded")
	}
	if _, err := a.CreateTexture(0, 4, DefaultTargetFormat); err == nil {
		t.Error("CreateTexture(0, 4) succeeded")
	}
	if _, err := a.CreateShaderModule(nil, "empty"); err == nil {
		t.Error("CreateShaderModule(nil) succeeded")
	}

	tex, err := a.CreateTexture(8, 8, DefaultTargetFormat)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	a.SetCurrentTarget(tex)
	a.DestroyTexture(tex)
	if _, err := a.BeginRenderPass(&gpucore.RenderPassDesc{}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("BeginRenderPass() on destroyed target error = %v, want ErrUnknownResource", err)
	}
}

func TestHALAdapter_PipelineUnknownModule(t *testing.T) {
	a := newNoopAdapter(t)
	_, err := a.CreateRenderPipeline(&gpucore.RenderPipelineDesc{Module: 42})
	if !errors.Is(err, ErrUnknownResource) {
		t.Errorf("CreateRenderPipeline() error = %v, want ErrUnknownResource", err)
	}
}

func TestHALAdapter_RenderPassErrors(t *testing.T) {
	a := newNoopAdapter(t)
	tex, err := a.CreateTexture(4, 4, DefaultTargetFormat)
	if err != nil {
		t.Fatal(err)
	}

	pass, err := a.BeginRenderPass(&gpucore.RenderPassDesc{Target: tex, Clear: true})
	if err != nil {
		t.Fatalf("BeginRenderPass() error = %v", err)
	}
	pass.SetPipeline(99)
	pass.Draw(3)
	if err := pass.End(); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("End() error = %v, want ErrUnknownResource", err)
	}
	if err := pass.End(); !errors.Is(err, ErrPassEnded) {
		t.Errorf("second End() error = %v, want ErrPassEnded", err)
	}
	if err := a.Submit(); err != nil {
		t.Errorf("Submit() with nothing pending error = %v", err)
	}
}

// The reference engine drives the adapter end to end on the noop device.
func TestHALAdapter_EngineDispatch(t *testing.T) {
	a := newNoopAdapter(t)
	e, err := engine.New(a, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Destroy()

	out, err := gpucore.NewTexture(a, 16, 16, DefaultTargetFormat)
	if err != nil {
		t.Fatal(err)
	}
	input, err := gpucore.NewTexture(a, 16, 16, DefaultTargetFormat)
	if err != nil {
		t.Fatal(err)
	}

	cmd := gpgpu.NewComputeCommand(&gpgpu.Options{
		FragmentShaderSource: shader.NewSource(`
struct Params {
    gain: f32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var inputTexture: texture_2d<f32>;
@group(0) @binding(2) var inputSampler: sampler;

@fragment
fn fs_main(in: ViewportQuadOutput) -> @location(0) vec4<f32> {
    return textureSample(inputTexture, inputSampler, in.v_textureCoordinates) * params.gain;
}
`),
		UniformMap: gpgpu.UniformMap{
			"gain":  gpgpu.UniformFunc(func() any { return float32(0.5) }),
			"input": gpgpu.UniformFunc(func() any { return input }),
		},
		OutputTexture: out,
	})
	if err := cmd.Execute(e); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	a.mu.RLock()
	pipelines, pending := len(a.pipelines), len(a.pending)
	a.mu.RUnlock()
	if pipelines != 0 {
		t.Errorf("pipelines after non-persistent dispatch = %d, want 0", pipelines)
	}
	if pending != 0 {
		t.Errorf("pending passes after dispatch = %d, want 0", pending)
	}
}

func TestNoopBackend(t *testing.T) {
	b, err := backend.Open(backend.BackendNoop)
	if err != nil {
		t.Fatalf("Open(noop) error = %v", err)
	}
	a, ok := b.Adapter().(*HALAdapter)
	if !ok {
		t.Fatalf("Adapter() = %T, want *HALAdapter", b.Adapter())
	}
	if _, err := a.CreateTexture(4, 4, a.TargetFormat()); err != nil {
		t.Errorf("CreateTexture() error = %v", err)
	}
	b.Close()
	if b.Adapter() != nil {
		t.Error("Adapter() is not nil after Close")
	}
	b.Close()
}
