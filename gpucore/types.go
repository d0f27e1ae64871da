package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ResourceKind names a class of GPU resource. It is used for diagnostics,
// metrics labels and failure injection in test adapters.
type ResourceKind uint8

// Resource kinds.
const (
	KindBuffer ResourceKind = iota
	KindTexture
	KindShaderModule
	KindRenderPipeline
)

// String returns the string representation of the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindShaderModule:
		return "shader_module"
	case KindRenderPipeline:
		return "render_pipeline"
	default:
		return "unknown"
	}
}

// Texture references a GPU texture together with the metadata needed to
// render into it or sample from it.
//
// Texture is a plain value: copying it does not duplicate the GPU resource.
// Whoever created the texture owns it and must destroy it through the
// adapter that created it.
type Texture struct {
	// ID is the adapter handle of the texture.
	ID TextureID

	// Width is the texture width in pixels.
	Width int

	// Height is the texture height in pixels.
	Height int

	// Format is the pixel format.
	Format gputypes.TextureFormat
}

// NewTexture allocates a texture through adapter and returns its handle.
func NewTexture(adapter GPUAdapter, width, height int, format gputypes.TextureFormat) (*Texture, error) {
	id, err := adapter.CreateTexture(width, height, format)
	if err != nil {
		return nil, err
	}
	return &Texture{ID: id, Width: width, Height: height, Format: format}, nil
}

// VertexAttribute describes one attribute inside an interleaved vertex.
type VertexAttribute struct {
	// Location is the shader location (@location(n) in WGSL).
	Location uint32

	// Format is the attribute format.
	Format gputypes.VertexFormat

	// Offset is the byte offset of the attribute within one vertex.
	Offset uint64
}

// VertexLayout describes an interleaved vertex buffer.
type VertexLayout struct {
	// Stride is the byte size of one vertex.
	Stride uint64

	// Attributes lists the attributes read from each vertex.
	Attributes []VertexAttribute
}

// RenderPipelineDesc describes a render pipeline.
type RenderPipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Module contains both the vertex and fragment entry points.
	Module ShaderModuleID

	// VertexEntryPoint is the name of the vertex stage function.
	VertexEntryPoint string

	// FragmentEntryPoint is the name of the fragment stage function.
	FragmentEntryPoint string

	// Layout is the vertex buffer layout consumed by the vertex stage.
	Layout VertexLayout

	// TextureBindings is the number of sampled textures the program reads.
	// Textures are bound after the uniform buffer.
	TextureBindings int
}

// RenderPassDesc describes a render pass.
type RenderPassDesc struct {
	// Label is an optional debug label.
	Label string

	// Target is the texture rendered into. InvalidID selects the adapter's
	// currently bound target.
	Target TextureID

	// Clear requests the target to be cleared to ClearColor before drawing.
	Clear bool

	// ClearColor is the clear value used when Clear is set.
	ClearColor gputypes.Color
}
