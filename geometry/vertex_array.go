// Package geometry provides GPU vertex arrays and the default viewport quad
// used by GPGPU dispatches.
package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpgpu/gpucore"
)

// Geometry errors.
var (
	// ErrEmptyVertices is returned when a vertex array has no vertex data.
	ErrEmptyVertices = errors.New("geometry: vertex data is empty")

	// ErrInvalidStride is returned when the layout stride does not divide the vertex data.
	ErrInvalidStride = errors.New("geometry: vertex data is not a multiple of the layout stride")
)

// VertexArray groups a vertex buffer, an optional index buffer and the
// layout describing the vertices.
//
// A VertexArray is owned by whoever created it. When it is referenced by a
// non-persistent compute command, ownership passes to the engine executing
// the command, which destroys it after the dispatch.
type VertexArray struct {
	// Label is an optional debug label.
	Label string

	// VertexBuffer holds interleaved vertex data.
	VertexBuffer gpucore.BufferID

	// IndexBuffer holds uint16 indices, or InvalidID for non-indexed drawing.
	IndexBuffer gpucore.BufferID

	// VertexCount is the number of vertices in VertexBuffer.
	VertexCount uint32

	// IndexCount is the number of indices in IndexBuffer.
	IndexCount uint32

	// Layout describes one vertex.
	Layout gpucore.VertexLayout

	destroyed bool
}

// NewVertexArray uploads vertices (and optional indices) to new GPU buffers.
//
// The length of vertices times four must be a multiple of layout.Stride.
// A nil or empty indices slice produces a non-indexed array.
func NewVertexArray(adapter gpucore.GPUAdapter, label string, vertices []float32, indices []uint16, layout gpucore.VertexLayout) (*VertexArray, error) {
	if len(vertices) == 0 {
		return nil, ErrEmptyVertices
	}
	size := uint64(len(vertices)) * 4
	if layout.Stride == 0 || size%layout.Stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes, stride %d", ErrInvalidStride, size, layout.Stride)
	}

	va := &VertexArray{
		Label:       label,
		VertexCount: uint32(size / layout.Stride),
		Layout:      layout,
	}

	vb, err := adapter.CreateBuffer(int(size), gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("geometry: create vertex buffer: %w", err)
	}
	va.VertexBuffer = vb
	if err := adapter.WriteBuffer(vb, 0, float32Bytes(vertices)); err != nil {
		va.Destroy(adapter)
		return nil, fmt.Errorf("geometry: upload vertices: %w", err)
	}

	if len(indices) > 0 {
		data := uint16Bytes(indices)
		ib, err := adapter.CreateBuffer(len(data), gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
		if err != nil {
			va.Destroy(adapter)
			return nil, fmt.Errorf("geometry: create index buffer: %w", err)
		}
		va.IndexBuffer = ib
		va.IndexCount = uint32(len(indices))
		if err := adapter.WriteBuffer(ib, 0, data); err != nil {
			va.Destroy(adapter)
			return nil, fmt.Errorf("geometry: upload indices: %w", err)
		}
	}

	return va, nil
}

// Indexed reports whether the array draws through an index buffer.
func (va *VertexArray) Indexed() bool {
	return va.IndexBuffer != gpucore.InvalidID && va.IndexCount > 0
}

// IsDestroyed reports whether Destroy has been called.
func (va *VertexArray) IsDestroyed() bool {
	return va.destroyed
}

// Destroy releases the GPU buffers. It is safe to call more than once.
func (va *VertexArray) Destroy(adapter gpucore.GPUAdapter) {
	if va == nil || va.destroyed {
		return
	}
	if va.IndexBuffer != gpucore.InvalidID {
		adapter.DestroyBuffer(va.IndexBuffer)
	}
	if va.VertexBuffer != gpucore.InvalidID {
		adapter.DestroyBuffer(va.VertexBuffer)
	}
	va.destroyed = true
}

// float32Bytes encodes floats as little-endian bytes.
func float32Bytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// uint16Bytes encodes indices as little-endian bytes padded to a multiple
// of four, as required for buffer writes.
func uint16Bytes(v []uint16) []byte {
	n := len(v) * 2
	out := make([]byte, (n+3)&^3)
	for i, x := range v {
		binary.LittleEndian.PutUint16(out[i*2:], x)
	}
	return out
}
