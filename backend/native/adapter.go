//go:build !nogpu

// Package native implements gpucore.GPUAdapter on a gogpu/wgpu HAL device.
//
// Kernels run as render pipelines: the uniform buffer is bound at group 0
// binding 0, and sampled texture i at binding 1+2i with its filtering sampler
// at binding 2+2i. Render passes are recorded into command buffers that are
// submitted together and waited on by Submit.
package native

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpgpu/gpucore"
)

// Adapter errors.
var (
	// ErrNotHALProvider is returned by NewFromProvider when the provider
	// does not expose HAL device and queue handles.
	ErrNotHALProvider = errors.New("native: provider does not expose HAL types")

	// ErrUnknownResource is returned when an ID is not tracked by the adapter.
	ErrUnknownResource = errors.New("native: unknown resource")

	// ErrGPUTimeout is returned when submitted work does not finish in time.
	ErrGPUTimeout = errors.New("native: timed out waiting for GPU")
)

// DefaultTargetFormat is the color format render pipelines are built for
// when none is configured.
const DefaultTargetFormat = gputypes.TextureFormatRGBA8Unorm

// submitTimeout bounds the fence wait in Submit.
const submitTimeout = 5 * time.Second

// dummyUniformSize is the size of the buffer bound when a kernel has no
// uniforms, so every bind group matches its layout.
const dummyUniformSize = 16

type halBuffer struct {
	buffer hal.Buffer
	size   uint64
}

type halTexture struct {
	texture hal.Texture
	view    hal.TextureView
}

type halPipeline struct {
	pipeline   hal.RenderPipeline
	layout     hal.PipelineLayout
	bindLayout hal.BindGroupLayout
	textures   int
}

// recorded is an ended render pass waiting for Submit.
type recorded struct {
	cmdBuf     hal.CommandBuffer
	bindGroups []hal.BindGroup
}

// HALAdapter implements gpucore.GPUAdapter using gogpu/wgpu/hal directly.
//
// Output textures must use the adapter's target format, since every render
// pipeline is built for that format.
//
// Thread Safety: HALAdapter is safe for concurrent use from multiple goroutines.
// All resource operations are protected by a mutex.
type HALAdapter struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	// ID generation
	nextID atomic.Uint64

	// Resource tracking maps gpucore IDs to hal resources
	buffers       map[gpucore.BufferID]*halBuffer
	textures      map[gpucore.TextureID]*halTexture
	shaderModules map[gpucore.ShaderModuleID]hal.ShaderModule
	pipelines     map[gpucore.RenderPipelineID]*halPipeline

	// Shared binding resources, created on first use.
	sampler      hal.Sampler
	dummyUniform hal.Buffer

	currentTarget gpucore.TextureID
	pending       []recorded

	log atomic.Pointer[slog.Logger]
}

var _ gpucore.GPUAdapter = (*HALAdapter)(nil)

// NewHALAdapter creates a new HALAdapter wrapping the given device and queue.
// Pipelines target format; TextureFormatUndefined selects
// DefaultTargetFormat.
func NewHALAdapter(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) *HALAdapter {
	if format == gputypes.TextureFormatUndefined {
		format = DefaultTargetFormat
	}
	a := &HALAdapter{
		device:        device,
		queue:         queue,
		format:        format,
		buffers:       make(map[gpucore.BufferID]*halBuffer),
		textures:      make(map[gpucore.TextureID]*halTexture),
		shaderModules: make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		pipelines:     make(map[gpucore.RenderPipelineID]*halPipeline),
	}

	// Start ID generation at 1 (0 is invalid)
	a.nextID.Store(1)
	return a
}

// NewFromProvider creates an adapter on the device shared by a host
// application. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. Pipelines target the
// provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider) (*HALAdapter, error) {
	if provider == nil {
		return nil, ErrNotHALProvider
	}
	device, queue, err := halHandles(provider)
	if err != nil {
		return nil, err
	}
	return NewHALAdapter(device, queue, provider.SurfaceFormat()), nil
}

// halHandles extracts the HAL device and queue from a provider.
func halHandles(provider any) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNotHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNotHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNotHALProvider)
	}
	return device, queue, nil
}

// SetLogger sets the adapter logger. Pass nil to disable logging.
func (a *HALAdapter) SetLogger(l *slog.Logger) {
	a.log.Store(l)
}

func (a *HALAdapter) logger() *slog.Logger {
	if l := a.log.Load(); l != nil {
		return l
	}
	return slog.New(nopHandler{})
}

// newID generates a unique resource ID.
func (a *HALAdapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// TargetFormat returns the color format render pipelines are built for.
func (a *HALAdapter) TargetFormat() gputypes.TextureFormat {
	return a.format
}

// SetCurrentTarget sets the texture rendered into by passes that do not
// name a target.
func (a *HALAdapter) SetCurrentTarget(id gpucore.TextureID) {
	a.mu.Lock()
	a.currentTarget = id
	a.mu.Unlock()
}

// === Shader Compilation ===

// CreateShaderModule creates a shader module from SPIR-V bytecode.
func (a *HALAdapter) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, fmt.Errorf("native: empty SPIR-V bytecode")
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module: %w", err)
	}

	id := gpucore.ShaderModuleID(a.newID())

	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()

	return id, nil
}

// DestroyShaderModule releases a shader module.
func (a *HALAdapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	if ok {
		delete(a.shaderModules, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyShaderModule(module)
	}
}

// === Buffer Management ===

// CreateBuffer creates a GPU buffer.
func (a *HALAdapter) CreateBuffer(size int, usage gputypes.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: buffer size must be positive")
	}

	buffer, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  uint64(size),
		Usage: usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer: %w", err)
	}

	id := gpucore.BufferID(a.newID())

	a.mu.Lock()
	a.buffers[id] = &halBuffer{buffer: buffer, size: uint64(size)}
	a.mu.Unlock()

	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (a *HALAdapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	b, ok := a.buffers[id]
	if ok {
		delete(a.buffers, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyBuffer(b.buffer)
	}
}

// WriteBuffer writes data to a buffer through the queue.
func (a *HALAdapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	a.mu.RLock()
	b, ok := a.buffers[id]
	a.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	if end := offset + uint64(len(data)); end > b.size {
		return fmt.Errorf("native: write [%d,%d) exceeds buffer size %d", offset, end, b.size)
	}
	if len(data) > 0 {
		a.queue.WriteBuffer(b.buffer, offset, data)
	}
	return nil
}

// === Texture Management ===

// CreateTexture creates a 2D texture usable both as a render target and as
// a sampled kernel input.
func (a *HALAdapter) CreateTexture(width, height int, format gputypes.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: texture dimensions must be positive")
	}

	//nolint:gosec // G115: dimensions checked positive above
	texture, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "gpgpu_texture",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture: %w", err)
	}

	view, err := a.device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label: "gpgpu_texture_view",
	})
	if err != nil {
		a.device.DestroyTexture(texture)
		return gpucore.InvalidID, fmt.Errorf("native: create texture view: %w", err)
	}

	id := gpucore.TextureID(a.newID())

	a.mu.Lock()
	a.textures[id] = &halTexture{texture: texture, view: view}
	a.mu.Unlock()

	return id, nil
}

// DestroyTexture releases a texture and its view.
func (a *HALAdapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	t, ok := a.textures[id]
	if ok {
		delete(a.textures, id)
	}
	if a.currentTarget == id {
		a.currentTarget = gpucore.InvalidID
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.texture)
	}
}

// === Pipeline Management ===

// CreateRenderPipeline builds a render pipeline drawing triangle lists with
// the given vertex layout into the adapter's target format.
func (a *HALAdapter) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("native: nil render pipeline descriptor")
	}

	a.mu.RLock()
	module, ok := a.shaderModules[desc.Module]
	a.mu.RUnlock()
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", ErrUnknownResource, desc.Module)
	}

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label + "_bind_layout",
		Entries: bindGroupLayoutEntries(desc.TextureBindings),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout: %w", err)
	}

	layout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		a.device.DestroyBindGroupLayout(bindLayout)
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout: %w", err)
	}

	pipeline, err := a.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    vertexBufferLayouts(desc.Layout),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    a.format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		a.device.DestroyPipelineLayout(layout)
		a.device.DestroyBindGroupLayout(bindLayout)
		return gpucore.InvalidID, fmt.Errorf("native: create render pipeline: %w", err)
	}

	id := gpucore.RenderPipelineID(a.newID())

	a.mu.Lock()
	a.pipelines[id] = &halPipeline{
		pipeline:   pipeline,
		layout:     layout,
		bindLayout: bindLayout,
		textures:   desc.TextureBindings,
	}
	a.mu.Unlock()

	a.logger().Debug("native: render pipeline created",
		"label", desc.Label,
		"textures", desc.TextureBindings,
		"stride", desc.Layout.Stride)
	return id, nil
}

// DestroyRenderPipeline releases a pipeline and its layouts in reverse
// creation order.
func (a *HALAdapter) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	a.mu.Lock()
	p, ok := a.pipelines[id]
	if ok {
		delete(a.pipelines, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyRenderPipeline(p.pipeline)
		a.device.DestroyPipelineLayout(p.layout)
		a.device.DestroyBindGroupLayout(p.bindLayout)
	}
}

// bindGroupLayoutEntries returns the layout of the uniform buffer followed
// by n texture and sampler pairs.
func bindGroupLayoutEntries(n int) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, 1+2*n)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	for i := 0; i < n; i++ {
		texBinding, samplerBinding := textureBindings(i)
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    texBinding,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    samplerBinding,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return entries
}

// textureBindings returns the texture and sampler binding numbers of the
// i-th sampled texture.
func textureBindings(i int) (texture, sampler uint32) {
	//nolint:gosec // G115: texture counts are small
	b := uint32(1 + 2*i)
	return b, b + 1
}

// vertexBufferLayouts converts a gpucore layout to the single interleaved
// vertex buffer layout used by kernels.
func vertexBufferLayouts(layout gpucore.VertexLayout) []gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(layout.Attributes))
	for i, attr := range layout.Attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         attr.Format,
			Offset:         attr.Offset,
			ShaderLocation: attr.Location,
		}
	}
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: layout.Stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		},
	}
}

// === Binding Resources ===

// ensureSharedLocked creates the sampler and the dummy uniform buffer.
// Must be called with mu held.
func (a *HALAdapter) ensureSharedLocked() error {
	if a.sampler == nil {
		sampler, err := a.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        "gpgpu_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
		})
		if err != nil {
			return fmt.Errorf("native: create sampler: %w", err)
		}
		a.sampler = sampler
	}
	if a.dummyUniform == nil {
		buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "gpgpu_empty_uniforms",
			Size:  dummyUniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("native: create empty uniform buffer: %w", err)
		}
		a.dummyUniform = buf
	}
	return nil
}

// createBindGroup builds the bind group of one draw.
func (a *HALAdapter) createBindGroup(pipeline gpucore.RenderPipelineID, uniforms gpucore.BufferID, textures []gpucore.TextureID) (hal.BindGroup, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pipelines[pipeline]
	if !ok {
		return nil, fmt.Errorf("%w: render pipeline %d", ErrUnknownResource, pipeline)
	}
	if len(textures) != p.textures {
		return nil, fmt.Errorf("native: pipeline binds %d textures, got %d", p.textures, len(textures))
	}
	if err := a.ensureSharedLocked(); err != nil {
		return nil, err
	}

	uniformBuf, uniformSize := a.dummyUniform, uint64(dummyUniformSize)
	if uniforms != gpucore.InvalidID {
		b, ok := a.buffers[uniforms]
		if !ok {
			return nil, fmt.Errorf("%w: uniform buffer %d", ErrUnknownResource, uniforms)
		}
		uniformBuf, uniformSize = b.buffer, b.size
	}

	entries := make([]gputypes.BindGroupEntry, 0, 1+2*len(textures))
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: uniformSize},
	})
	for i, id := range textures {
		t, ok := a.textures[id]
		if !ok {
			return nil, fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
		}
		texBinding, samplerBinding := textureBindings(i)
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  texBinding,
				Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
			},
			gputypes.BindGroupEntry{
				Binding:  samplerBinding,
				Resource: gputypes.SamplerBinding{Sampler: a.sampler.NativeHandle()},
			},
		)
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "gpgpu_bind_group",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	return bg, nil
}

// === Render Passes ===

// BeginRenderPass starts a render pass on its own command encoder.
func (a *HALAdapter) BeginRenderPass(desc *gpucore.RenderPassDesc) (gpucore.RenderPassEncoder, error) {
	if desc == nil {
		return nil, fmt.Errorf("native: nil render pass descriptor")
	}

	a.mu.RLock()
	target := desc.Target
	if target == gpucore.InvalidID {
		target = a.currentTarget
	}
	t, ok := a.textures[target]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: render target %d", ErrUnknownResource, target)
	}

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: desc.Label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(desc.Label); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}

	loadOp := gputypes.LoadOpLoad
	if desc.Clear {
		loadOp = gputypes.LoadOpClear
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: desc.ClearColor,
		}},
	})

	return &halRenderPassEncoder{adapter: a, encoder: encoder, pass: rp}, nil
}

// Submit submits every ended render pass and waits for the GPU to finish.
// Bind groups and command buffers of the submitted passes are released.
func (a *HALAdapter) Submit() error {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	cmdBufs := make([]hal.CommandBuffer, len(pending))
	for i, r := range pending {
		cmdBufs[i] = r.cmdBuf
	}
	defer func() {
		for _, r := range pending {
			a.device.FreeCommandBuffer(r.cmdBuf)
			for _, bg := range r.bindGroups {
				a.device.DestroyBindGroup(bg)
			}
		}
	}()

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("native: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)

	if err := a.queue.Submit(cmdBufs, fence, 1); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	fenceOK, err := a.device.Wait(fence, 1, submitTimeout)
	if err != nil {
		return fmt.Errorf("native: wait for GPU: %w", err)
	}
	if !fenceOK {
		return ErrGPUTimeout
	}

	a.logger().Debug("native: submitted", "passes", len(pending))
	return nil
}

// Destroy releases every resource still tracked by the adapter. The device
// and queue belong to the caller and are left alone.
func (a *HALAdapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.pending {
		a.device.FreeCommandBuffer(r.cmdBuf)
		for _, bg := range r.bindGroups {
			a.device.DestroyBindGroup(bg)
		}
	}
	a.pending = nil

	for id, p := range a.pipelines {
		a.device.DestroyRenderPipeline(p.pipeline)
		a.device.DestroyPipelineLayout(p.layout)
		a.device.DestroyBindGroupLayout(p.bindLayout)
		delete(a.pipelines, id)
	}
	for id, m := range a.shaderModules {
		a.device.DestroyShaderModule(m)
		delete(a.shaderModules, id)
	}
	for id, t := range a.textures {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.texture)
		delete(a.textures, id)
	}
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buffer)
		delete(a.buffers, id)
	}
	if a.sampler != nil {
		a.device.DestroySampler(a.sampler)
		a.sampler = nil
	}
	if a.dummyUniform != nil {
		a.device.DestroyBuffer(a.dummyUniform)
		a.dummyUniform = nil
	}
	a.currentTarget = gpucore.InvalidID
}
