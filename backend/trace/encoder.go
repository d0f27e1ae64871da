package trace

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpgpu/gpucore"
)

// ErrPassEnded is returned by End when the encoder was already ended.
var ErrPassEnded = errors.New("trace: render pass has already ended")

// encoder records one render pass. Errors are collected and reported by End,
// mirroring how GPU encoders defer validation to the end of the pass.
type encoder struct {
	adapter *Adapter
	pass    *Pass
	ended   bool
	errs    []error
}

// check validates a resource used by the pass. Must be called with
// adapter.mu held.
func (e *encoder) check(call string, kind gpucore.ResourceKind, id uint64) *resource {
	if e.ended {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", call, ErrPassEnded))
		return nil
	}
	r, err := e.adapter.lookup(kind, id)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", call, err))
		return nil
	}
	e.adapter.ops = append(e.adapter.ops, Op{Call: call, Kind: kind, ID: id})
	return r
}

func (e *encoder) SetPipeline(pipeline gpucore.RenderPipelineID) {
	e.adapter.mu.Lock()
	defer e.adapter.mu.Unlock()
	if e.check("SetPipeline", gpucore.KindRenderPipeline, uint64(pipeline)) != nil {
		e.pass.Pipeline = pipeline
	}
}

func (e *encoder) SetVertexBuffer(buffer gpucore.BufferID) {
	e.adapter.mu.Lock()
	defer e.adapter.mu.Unlock()
	if e.check("SetVertexBuffer", gpucore.KindBuffer, uint64(buffer)) != nil {
		e.pass.VertexBuffer = buffer
	}
}

func (e *encoder) SetIndexBuffer(buffer gpucore.BufferID) {
	e.adapter.mu.Lock()
	defer e.adapter.mu.Unlock()
	if e.check("SetIndexBuffer", gpucore.KindBuffer, uint64(buffer)) != nil {
		e.pass.IndexBuffer = buffer
	}
}

func (e *encoder) SetBindings(uniforms gpucore.BufferID, textures []gpucore.TextureID) {
	e.adapter.mu.Lock()
	defer e.adapter.mu.Unlock()
	if uniforms != gpucore.InvalidID {
		if e.check("SetBindings", gpucore.KindBuffer, uint64(uniforms)) == nil {
			return
		}
	}
	for _, t := range textures {
		if e.check("SetBindings", gpucore.KindTexture, uint64(t)) == nil {
			return
		}
	}
	e.pass.Uniforms = uniforms
	e.pass.Textures = append([]gpucore.TextureID(nil), textures...)
}

func (e *encoder) draw(call string, count uint32, indexed bool) {
	e.adapter.mu.Lock()
	defer e.adapter.mu.Unlock()
	if e.ended {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", call, ErrPassEnded))
		return
	}
	if e.pass.Pipeline == gpucore.InvalidID {
		e.errs = append(e.errs, fmt.Errorf("%s: no pipeline set", call))
		return
	}
	if indexed && e.pass.IndexBuffer == gpucore.InvalidID {
		e.errs = append(e.errs, fmt.Errorf("%s: no index buffer set", call))
		return
	}
	if e.pass.Uniforms != gpucore.InvalidID {
		if r, err := e.adapter.lookup(gpucore.KindBuffer, uint64(e.pass.Uniforms)); err == nil {
			e.pass.UniformData = append([]byte(nil), r.data...)
		}
	}
	e.pass.Count = count
	e.pass.Indexed = indexed
	e.pass.Draws++
	e.adapter.ops = append(e.adapter.ops, Op{Call: call, ID: uint64(count)})
}

func (e *encoder) Draw(vertexCount uint32) { e.draw("Draw", vertexCount, false) }

func (e *encoder) DrawIndexed(indexCount uint32) { e.draw("DrawIndexed", indexCount, true) }

func (e *encoder) End() error {
	e.adapter.mu.Lock()
	defer e.adapter.mu.Unlock()
	if e.ended {
		return ErrPassEnded
	}
	e.ended = true
	if e.adapter.recording == e.pass {
		e.adapter.recording = nil
	}
	e.adapter.ops = append(e.adapter.ops, Op{Call: "EndRenderPass"})
	if err := errors.Join(e.errs...); err != nil {
		return err
	}
	e.adapter.pending = append(e.adapter.pending, *e.pass)
	return nil
}
