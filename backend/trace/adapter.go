// Package trace provides a device-less gpucore.GPUAdapter that records every
// call instead of talking to a GPU.
//
// The trace adapter is used for dry runs of compute commands and as the
// backing store of engine tests: it hands out IDs, keeps the bytes written to
// buffers, records render passes and tracks which resources are still alive,
// so resource retention and release can be asserted without a device.
//
// Unlike a real device, the trace adapter reports use of destroyed or unknown
// resources as errors ([ErrDestroyed], [ErrUnknown]).
package trace

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpgpu/gpucore"
)

// Trace adapter errors.
var (
	// ErrUnknown is returned when an ID was never issued by the adapter.
	ErrUnknown = errors.New("trace: unknown resource")

	// ErrDestroyed is returned when a released resource is used again.
	ErrDestroyed = errors.New("trace: resource already destroyed")

	// ErrInjected is the default error returned by FailNext.
	ErrInjected = errors.New("trace: injected failure")

	// ErrPassActive is returned when a render pass is begun or work is
	// submitted while another pass is still recording.
	ErrPassActive = errors.New("trace: render pass still recording")
)

// Op is a single recorded adapter call.
type Op struct {
	// Call is the adapter method name, e.g. "CreateBuffer".
	Call string

	// Kind is the kind of resource the call operated on.
	Kind gpucore.ResourceKind

	// ID is the resource the call created, destroyed or used.
	ID uint64

	// Label is the debug label, when the call carried one.
	Label string
}

// String formats the op for logs and CLI output.
func (o Op) String() string {
	if o.Label != "" {
		return fmt.Sprintf("%s %s#%d %q", o.Call, o.Kind, o.ID, o.Label)
	}
	return fmt.Sprintf("%s %s#%d", o.Call, o.Kind, o.ID)
}

// Pass is a recorded render pass.
type Pass struct {
	Desc         gpucore.RenderPassDesc
	Pipeline     gpucore.RenderPipelineID
	VertexBuffer gpucore.BufferID
	IndexBuffer  gpucore.BufferID
	Uniforms     gpucore.BufferID
	Textures     []gpucore.TextureID

	// UniformData is a snapshot of the uniform buffer at draw time.
	UniformData []byte

	// Count is the vertex or index count of the draw.
	Count   uint32
	Indexed bool
	Draws   int
}

// Resource is a live resource reported by Leaks.
type Resource struct {
	Kind  gpucore.ResourceKind
	ID    uint64
	Label string
}

type resource struct {
	kind      gpucore.ResourceKind
	label     string
	destroyed bool
	data      []byte
	texture   *gpucore.Texture
}

// Adapter is a recording gpucore.GPUAdapter.
//
// Thread Safety: Adapter is safe for concurrent use from multiple goroutines.
type Adapter struct {
	mu sync.Mutex

	nextID    uint64
	resources map[uint64]*resource
	ops       []Op

	currentTarget gpucore.TextureID
	failures      map[gpucore.ResourceKind]error

	recording *Pass
	pending   []Pass
	submitted []Pass
}

// New creates an empty trace adapter.
func New() *Adapter {
	return &Adapter{
		nextID:    1,
		resources: make(map[uint64]*resource),
		failures:  make(map[gpucore.ResourceKind]error),
	}
}

var _ gpucore.GPUAdapter = (*Adapter)(nil)

// FailNext makes the next creation of the given kind fail with err.
// A nil err selects ErrInjected.
func (a *Adapter) FailNext(kind gpucore.ResourceKind, err error) {
	if err == nil {
		err = ErrInjected
	}
	a.mu.Lock()
	a.failures[kind] = err
	a.mu.Unlock()
}

// SetCurrentTarget sets the texture rendered into when a pass targets
// gpucore.InvalidID.
func (a *Adapter) SetCurrentTarget(id gpucore.TextureID) {
	a.mu.Lock()
	a.currentTarget = id
	a.mu.Unlock()
}

// create registers a new resource. Must be called with mu held.
func (a *Adapter) create(call string, kind gpucore.ResourceKind, label string) (uint64, error) {
	if err, ok := a.failures[kind]; ok {
		delete(a.failures, kind)
		a.ops = append(a.ops, Op{Call: call + "!", Kind: kind, Label: label})
		return gpucore.InvalidID, fmt.Errorf("%s: %w", call, err)
	}
	id := a.nextID
	a.nextID++
	a.resources[id] = &resource{kind: kind, label: label}
	a.ops = append(a.ops, Op{Call: call, Kind: kind, ID: id, Label: label})
	return id, nil
}

// destroy releases a resource. Must be called with mu held. Destroying an
// unknown or already destroyed resource is recorded but otherwise ignored,
// matching the silent behavior of real devices.
func (a *Adapter) destroy(call string, kind gpucore.ResourceKind, id uint64) {
	op := Op{Call: call, Kind: kind, ID: id}
	r, ok := a.resources[id]
	switch {
	case !ok || r.kind != kind:
		op.Call += "?"
	case r.destroyed:
		op.Call += "!"
	default:
		r.destroyed = true
		r.data = nil
		op.Label = r.label
	}
	a.ops = append(a.ops, op)
}

// lookup validates a resource reference. Must be called with mu held.
func (a *Adapter) lookup(kind gpucore.ResourceKind, id uint64) (*resource, error) {
	r, ok := a.resources[id]
	if !ok || r.kind != kind {
		return nil, fmt.Errorf("%w: %s#%d", ErrUnknown, kind, id)
	}
	if r.destroyed {
		return nil, fmt.Errorf("%w: %s#%d", ErrDestroyed, kind, id)
	}
	return r, nil
}

// CreateShaderModule records a shader module creation.
func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, fmt.Errorf("trace: empty SPIR-V bytecode")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.create("CreateShaderModule", gpucore.KindShaderModule, label)
	return gpucore.ShaderModuleID(id), err
}

// DestroyShaderModule records a shader module release.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroy("DestroyShaderModule", gpucore.KindShaderModule, uint64(id))
}

// CreateBuffer records a buffer allocation.
func (a *Adapter) CreateBuffer(size int, usage gputypes.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("trace: buffer size must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.create("CreateBuffer", gpucore.KindBuffer, "")
	if err != nil {
		return gpucore.InvalidID, err
	}
	a.resources[id].data = make([]byte, size)
	return gpucore.BufferID(id), nil
}

// DestroyBuffer records a buffer release.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroy("DestroyBuffer", gpucore.KindBuffer, uint64(id))
}

// WriteBuffer stores data in the buffer's shadow copy.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.lookup(gpucore.KindBuffer, uint64(id))
	if err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}
	end := offset + uint64(len(data))
	if end > uint64(len(r.data)) {
		return fmt.Errorf("write buffer: range [%d,%d) exceeds size %d", offset, end, len(r.data))
	}
	copy(r.data[offset:end], data)
	a.ops = append(a.ops, Op{Call: "WriteBuffer", Kind: gpucore.KindBuffer, ID: uint64(id)})
	return nil
}

// CreateTexture records a texture allocation.
func (a *Adapter) CreateTexture(width, height int, format gputypes.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("trace: texture dimensions must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.create("CreateTexture", gpucore.KindTexture, "")
	if err != nil {
		return gpucore.InvalidID, err
	}
	a.resources[id].texture = &gpucore.Texture{
		ID: gpucore.TextureID(id), Width: width, Height: height, Format: format,
	}
	return gpucore.TextureID(id), nil
}

// DestroyTexture records a texture release.
func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroy("DestroyTexture", gpucore.KindTexture, uint64(id))
}

// CreateRenderPipeline records a pipeline creation. The shader module must
// be alive.
func (a *Adapter) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("trace: nil render pipeline descriptor")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.lookup(gpucore.KindShaderModule, uint64(desc.Module)); err != nil {
		return gpucore.InvalidID, fmt.Errorf("create render pipeline: %w", err)
	}
	id, err := a.create("CreateRenderPipeline", gpucore.KindRenderPipeline, desc.Label)
	return gpucore.RenderPipelineID(id), err
}

// DestroyRenderPipeline records a pipeline release.
func (a *Adapter) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroy("DestroyRenderPipeline", gpucore.KindRenderPipeline, uint64(id))
}

// BeginRenderPass starts recording a pass.
func (a *Adapter) BeginRenderPass(desc *gpucore.RenderPassDesc) (gpucore.RenderPassEncoder, error) {
	if desc == nil {
		return nil, fmt.Errorf("trace: nil render pass descriptor")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recording != nil {
		return nil, ErrPassActive
	}
	d := *desc
	if d.Target == gpucore.InvalidID {
		d.Target = a.currentTarget
	}
	if d.Target != gpucore.InvalidID {
		if _, err := a.lookup(gpucore.KindTexture, uint64(d.Target)); err != nil {
			return nil, fmt.Errorf("begin render pass: %w", err)
		}
	}
	a.recording = &Pass{Desc: d}
	a.ops = append(a.ops, Op{Call: "BeginRenderPass", Kind: gpucore.KindTexture, ID: uint64(d.Target), Label: d.Label})
	return &encoder{adapter: a, pass: a.recording}, nil
}

// Submit moves all ended passes to the submitted list.
func (a *Adapter) Submit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recording != nil {
		return ErrPassActive
	}
	a.submitted = append(a.submitted, a.pending...)
	a.ops = append(a.ops, Op{Call: "Submit", ID: uint64(len(a.pending))})
	a.pending = nil
	return nil
}

// Ops returns a copy of the recorded calls.
func (a *Adapter) Ops() []Op {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Op(nil), a.ops...)
}

// Submitted returns a copy of the submitted passes, oldest first.
func (a *Adapter) Submitted() []Pass {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Pass(nil), a.submitted...)
}

// Count reports how many calls with the given name were recorded.
func (a *Adapter) Count(call string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, op := range a.ops {
		if op.Call == call {
			n++
		}
	}
	return n
}

// Alive reports whether id was issued and not yet destroyed.
func (a *Adapter) Alive(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.resources[id]
	return ok && !r.destroyed
}

// Live returns the number of live resources of the given kind.
func (a *Adapter) Live(kind gpucore.ResourceKind) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.resources {
		if r.kind == kind && !r.destroyed {
			n++
		}
	}
	return n
}

// Leaks returns all live resources ordered by ID.
func (a *Adapter) Leaks() []Resource {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []Resource
	for id, r := range a.resources {
		if !r.destroyed {
			out = append(out, Resource{Kind: r.kind, ID: id, Label: r.label})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BufferData returns a copy of the current contents of a live buffer.
func (a *Adapter) BufferData(id gpucore.BufferID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.lookup(gpucore.KindBuffer, uint64(id))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), r.data...), nil
}

// Texture returns the metadata of a live texture.
func (a *Adapter) Texture(id gpucore.TextureID) (gpucore.Texture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.lookup(gpucore.KindTexture, uint64(id))
	if err != nil {
		return gpucore.Texture{}, err
	}
	return *r.texture, nil
}
