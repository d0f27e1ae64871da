package geometry

import (
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpgpu/gpucore"
)

// ViewportQuadLayout is the vertex layout of the viewport quad: a vec2
// clip-space position at location 0 followed by a vec2 texture coordinate
// at location 1.
var ViewportQuadLayout = gpucore.VertexLayout{
	Stride: 16,
	Attributes: []gpucore.VertexAttribute{
		{Location: 0, Format: gputypes.VertexFormatFloat32x2, Offset: 0},
		{Location: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 8},
	},
}

// viewportQuadVertices covers clip space [-1,1]² with texture coordinates
// [0,1]², (0,0) at the top-left corner of the target.
var viewportQuadVertices = []float32{
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

// viewportQuadIndices form two counter-clockwise triangles.
var viewportQuadIndices = []uint16{0, 1, 2, 0, 2, 3}

// ViewportQuad lazily creates and caches the full-screen quad used when a
// compute command carries no geometry of its own.
//
// The quad is owned by the ViewportQuad, not by any command, and is released
// only by Destroy.
type ViewportQuad struct {
	mu      sync.Mutex
	adapter gpucore.GPUAdapter
	va      *VertexArray
}

// NewViewportQuad creates a provider that allocates the quad through adapter
// on first use.
func NewViewportQuad(adapter gpucore.GPUAdapter) *ViewportQuad {
	return &ViewportQuad{adapter: adapter}
}

// VertexArray returns the quad, creating it on first call. Every call
// returns the same array until Destroy.
func (q *ViewportQuad) VertexArray() (*VertexArray, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.va != nil {
		return q.va, nil
	}
	va, err := NewVertexArray(q.adapter, "viewport_quad", viewportQuadVertices, viewportQuadIndices, ViewportQuadLayout)
	if err != nil {
		return nil, err
	}
	q.va = va
	return va, nil
}

// Owns reports whether va is the quad managed by this provider.
func (q *ViewportQuad) Owns(va *VertexArray) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return va != nil && va == q.va
}

// Destroy releases the quad. A later VertexArray call creates a new one.
func (q *ViewportQuad) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.va != nil {
		q.va.Destroy(q.adapter)
		q.va = nil
	}
}
