//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpgpu/gpucore"
)

// ErrPassEnded is returned when operations are called on an ended pass.
var ErrPassEnded = errors.New("native: render pass has already ended")

// halRenderPassEncoder implements gpucore.RenderPassEncoder on a
// hal.RenderPassEncoder. Resolution failures are collected and reported by
// End, which then discards the encoding instead of queueing it.
type halRenderPassEncoder struct {
	adapter *HALAdapter
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder

	pipeline   gpucore.RenderPipelineID
	uniforms   gpucore.BufferID
	textures   []gpucore.TextureID
	bindGroups []hal.BindGroup

	ended bool
	errs  []error
}

func (e *halRenderPassEncoder) fail(err error) {
	e.errs = append(e.errs, err)
}

// SetPipeline sets the active render pipeline.
func (e *halRenderPassEncoder) SetPipeline(pipeline gpucore.RenderPipelineID) {
	if e.ended {
		return
	}
	e.adapter.mu.RLock()
	p, ok := e.adapter.pipelines[pipeline]
	e.adapter.mu.RUnlock()

	if !ok {
		e.fail(fmt.Errorf("%w: render pipeline %d", ErrUnknownResource, pipeline))
		return
	}
	e.pipeline = pipeline
	e.pass.SetPipeline(p.pipeline)
}

// SetVertexBuffer binds the interleaved vertex buffer to slot 0.
func (e *halRenderPassEncoder) SetVertexBuffer(buffer gpucore.BufferID) {
	if e.ended {
		return
	}
	e.adapter.mu.RLock()
	b, ok := e.adapter.buffers[buffer]
	e.adapter.mu.RUnlock()

	if !ok {
		e.fail(fmt.Errorf("%w: vertex buffer %d", ErrUnknownResource, buffer))
		return
	}
	e.pass.SetVertexBuffer(0, b.buffer, 0)
}

// SetIndexBuffer binds a uint16 index buffer.
func (e *halRenderPassEncoder) SetIndexBuffer(buffer gpucore.BufferID) {
	if e.ended {
		return
	}
	e.adapter.mu.RLock()
	b, ok := e.adapter.buffers[buffer]
	e.adapter.mu.RUnlock()

	if !ok {
		e.fail(fmt.Errorf("%w: index buffer %d", ErrUnknownResource, buffer))
		return
	}
	e.pass.SetIndexBuffer(b.buffer, gputypes.IndexFormatUint16, 0)
}

// SetBindings records the uniform buffer and textures. The bind group is
// built at the next draw, once the pipeline is known.
func (e *halRenderPassEncoder) SetBindings(uniforms gpucore.BufferID, textures []gpucore.TextureID) {
	e.uniforms = uniforms
	e.textures = append([]gpucore.TextureID(nil), textures...)
}

// bind creates and sets the bind group for the current pipeline.
func (e *halRenderPassEncoder) bind() bool {
	if e.ended {
		e.fail(ErrPassEnded)
		return false
	}
	if e.pipeline == gpucore.InvalidID {
		e.fail(fmt.Errorf("native: draw without pipeline"))
		return false
	}
	bg, err := e.adapter.createBindGroup(e.pipeline, e.uniforms, e.textures)
	if err != nil {
		e.fail(err)
		return false
	}
	e.bindGroups = append(e.bindGroups, bg)
	e.pass.SetBindGroup(0, bg, nil)
	return true
}

// Draw draws non-indexed vertices.
func (e *halRenderPassEncoder) Draw(vertexCount uint32) {
	if e.bind() {
		e.pass.Draw(vertexCount, 1, 0, 0)
	}
}

// DrawIndexed draws indexed vertices.
func (e *halRenderPassEncoder) DrawIndexed(indexCount uint32) {
	if e.bind() {
		e.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
	}
}

// End finishes the pass and queues its command buffer for Submit.
func (e *halRenderPassEncoder) End() error {
	if e.ended {
		return ErrPassEnded
	}
	e.ended = true
	e.pass.End()

	if err := errors.Join(e.errs...); err != nil {
		e.encoder.DiscardEncoding()
		e.release()
		return err
	}

	cmdBuf, err := e.encoder.EndEncoding()
	if err != nil {
		e.release()
		return fmt.Errorf("native: end encoding: %w", err)
	}

	e.adapter.mu.Lock()
	e.adapter.pending = append(e.adapter.pending, recorded{cmdBuf: cmdBuf, bindGroups: e.bindGroups})
	e.adapter.mu.Unlock()
	return nil
}

func (e *halRenderPassEncoder) release() {
	for _, bg := range e.bindGroups {
		e.adapter.device.DestroyBindGroup(bg)
	}
	e.bindGroups = nil
}
