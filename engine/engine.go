// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpgpu"
	"github.com/gogpu/gpgpu/geometry"
	"github.com/gogpu/gpgpu/gpucore"
	"github.com/gogpu/gpgpu/shader"
)

// Engine errors.
var (
	// ErrNilAdapter is returned by New when no adapter is given.
	ErrNilAdapter = errors.New("engine: nil GPU adapter")

	// ErrDestroyed is returned when a destroyed engine is used.
	ErrDestroyed = errors.New("engine: engine destroyed")

	// ErrReleased is returned when a command references a vertex array or
	// shader program that was already released, typically because a
	// non-persistent command was executed twice.
	ErrReleased = errors.New("engine: command resource already released")

	// ErrBindingMismatch is returned when a command's shader program binds
	// a different number of textures than its uniform map supplies.
	ErrBindingMismatch = errors.New("engine: texture binding count mismatch")
)

const passLabel = "gpgpu.compute"

// persistentEntry is a program compiled from the source of a persistent
// command, held until the command is discarded.
type persistentEntry struct {
	program *shader.Program
	key     string
}

// Stats contains engine statistics.
type Stats struct {
	// Dispatches is the number of successful dispatches.
	Dispatches uint64

	// Failures is the number of dispatches that returned an error.
	Failures uint64

	// CachedPrograms is the number of programs in the program cache.
	CachedPrograms int

	// PersistentCommands is the number of persistent commands holding a
	// program compiled from their source.
	PersistentCommands int
}

// String returns a human-readable summary of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("Engine[%d dispatches, %d failures, %d cached programs, %d persistent commands]",
		s.Dispatches, s.Failures, s.CachedPrograms, s.PersistentCommands)
}

// ComputeEngine executes compute commands on a GPUAdapter.
//
// For every command it selects a program (the command's own, or one compiled
// from its fragment shader source and shared through a program cache),
// selects geometry (the command's own, or the default viewport quad),
// resolves and packs uniforms, and draws into the output texture in a single
// render pass. After the dispatch it releases the command's resources unless
// the command persists.
//
// ComputeEngine implements gpgpu.Engine.
//
// Thread Safety: Execute, Discard and Destroy are serialized by a mutex.
type ComputeEngine struct {
	mu sync.Mutex

	adapter      gpucore.GPUAdapter
	geometry     GeometryProvider
	cache        *shader.ProgramCache
	vertexShader string
	vertexEntry  string
	clearColor   gputypes.Color
	metrics      *Metrics

	// persistent maps persistent commands to programs compiled from their
	// source, so repeated dispatches do not recompile.
	persistent map[*gpgpu.ComputeCommand]*persistentEntry

	log atomic.Pointer[slog.Logger]

	dispatches uint64
	failures   uint64
	destroyed  bool
}

var _ gpgpu.Engine = (*ComputeEngine)(nil)

// New creates a compute engine on adapter. A nil cfg selects all defaults.
func New(adapter gpucore.GPUAdapter, cfg *Config) (*ComputeEngine, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	if cfg == nil {
		cfg = &Config{}
	}

	e := &ComputeEngine{
		adapter:      adapter,
		geometry:     cfg.Geometry,
		cache:        shader.NewProgramCache(adapter, cfg.Compiler),
		vertexShader: cfg.VertexShader,
		vertexEntry:  cfg.VertexEntryPoint,
		clearColor:   cfg.ClearColor,
		metrics:      cfg.Metrics,
		persistent:   make(map[*gpgpu.ComputeCommand]*persistentEntry),
	}
	if e.geometry == nil {
		e.geometry = geometry.NewViewportQuad(adapter)
	}
	if e.vertexShader == "" {
		e.vertexShader = shader.ViewportQuadVS
	}
	if e.vertexEntry == "" {
		e.vertexEntry = shader.DefaultVertexEntryPoint
	}
	if cfg.Logger != nil {
		e.SetLogger(cfg.Logger)
	}

	e.logger().Info("engine: created", "adapter", fmt.Sprintf("%T", adapter))
	return e, nil
}

// loggerSetter is implemented by adapters that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// SetLogger sets the engine's logger and passes it to the adapter if the
// adapter accepts one. Pass nil to fall back to gpgpu.Logger().
func (e *ComputeEngine) SetLogger(l *slog.Logger) {
	e.log.Store(l)
	if l == nil {
		l = gpgpu.Logger()
	}
	if ls, ok := e.adapter.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func (e *ComputeEngine) logger() *slog.Logger {
	if l := e.log.Load(); l != nil {
		return l
	}
	return gpgpu.Logger()
}

// Execute dispatches cmd.
//
// Commands with neither a shader program nor a fragment shader source are
// rejected with gpgpu.ErrIncompleteCommand before anything is allocated, and
// their resources are left untouched. Once validation passes, a
// non-persistent command is consumed: its resources are released even if
// the dispatch fails. A nil engine returns gpgpu.ErrNilEngine.
func (e *ComputeEngine) Execute(cmd *gpgpu.ComputeCommand) (err error) {
	if e == nil {
		return gpgpu.ErrNilEngine
	}
	if cmd == nil {
		return gpgpu.ErrNilCommand
	}
	if cmd.Pass() != gpgpu.PassCompute {
		return fmt.Errorf("%w: %v", gpgpu.ErrWrongPass, cmd.Pass())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return ErrDestroyed
	}

	start := time.Now()
	log := e.logger()

	if cmd.ShaderProgram == nil && cmd.FragmentShaderSource == nil {
		e.failures++
		e.metrics.dispatch(ResultIncomplete, time.Since(start))
		log.Warn("engine: incomplete command", "owner", cmd.Owner)
		return gpgpu.ErrIncompleteCommand
	}

	defer func() {
		result := ResultOK
		if err != nil {
			result = ResultError
			e.failures++
			log.Warn("engine: dispatch failed", "owner", cmd.Owner, "err", err)
		} else {
			e.dispatches++
		}
		e.metrics.dispatch(result, time.Since(start))
		e.metrics.setCached(e.cache.Len())
	}()

	if !cmd.Persists {
		defer e.retire(cmd)
	}

	if stale(cmd) {
		return ErrReleased
	}

	va := cmd.VertexArray
	if va == nil {
		if va, err = e.geometry.VertexArray(); err != nil {
			return fmt.Errorf("engine: default geometry: %w", err)
		}
	}

	// Uniforms are resolved at dispatch, not at construction.
	block, err := shader.PackUniforms(cmd.UniformMap.Resolve())
	if err != nil {
		return fmt.Errorf("engine: uniforms: %w", err)
	}

	program, release, err := e.program(cmd, va, len(block.Textures))
	if err != nil {
		return err
	}
	if release {
		defer func() {
			if e.cache.Release(program) {
				e.metrics.released(KindProgram)
			}
		}()
	}

	uniforms := gpucore.BufferID(gpucore.InvalidID)
	if len(block.Data) > 0 {
		if uniforms, err = e.uploadUniforms(block.Data); err != nil {
			return err
		}
		defer func() {
			e.adapter.DestroyBuffer(uniforms)
			e.metrics.released(KindUniforms)
		}()
	}

	if err := e.draw(cmd, program, va, uniforms, block.Textures); err != nil {
		return err
	}

	log.Debug("engine: dispatched",
		"owner", cmd.Owner,
		"pipeline", program.Pipeline,
		"indexed", va.Indexed(),
		"uniform_bytes", len(block.Data),
		"textures", len(block.Textures),
		"persists", cmd.Persists)
	return nil
}

// stale reports whether cmd references resources that were already released.
func stale(cmd *gpgpu.ComputeCommand) bool {
	if cmd.VertexArray != nil && cmd.VertexArray.IsDestroyed() {
		return true
	}
	return cmd.ShaderProgram != nil && cmd.ShaderProgram.IsDestroyed()
}

// program selects the program for cmd. It reports whether the caller must
// release the program to the cache after the dispatch.
func (e *ComputeEngine) program(cmd *gpgpu.ComputeCommand, va *geometry.VertexArray, textures int) (*shader.Program, bool, error) {
	if p := cmd.ShaderProgram; p != nil {
		// A caller program replaces one compiled from source earlier.
		e.dropPersistent(cmd)
		if p.TextureBindings != textures {
			return nil, false, fmt.Errorf("%w: program binds %d, uniforms supply %d",
				ErrBindingMismatch, p.TextureBindings, textures)
		}
		return p, false, nil
	}

	desc := &shader.ProgramDesc{
		Label:            passLabel,
		VertexShader:     e.vertexShader,
		VertexEntryPoint: e.vertexEntry,
		Fragment:         cmd.FragmentShaderSource,
		Layout:           va.Layout,
		TextureBindings:  textures,
	}

	if !cmd.Persists {
		p, err := e.cache.Acquire(desc)
		if err != nil {
			return nil, false, fmt.Errorf("engine: program: %w", err)
		}
		return p, true, nil
	}

	key := desc.Key()
	if entry, ok := e.persistent[cmd]; ok {
		if entry.key == key {
			return entry.program, false, nil
		}
		// Source, layout or bindings changed since the last dispatch.
		e.dropPersistent(cmd)
	}

	p, err := e.cache.Acquire(desc)
	if err != nil {
		return nil, false, fmt.Errorf("engine: program: %w", err)
	}
	e.persistent[cmd] = &persistentEntry{program: p, key: key}
	return p, false, nil
}

// dropPersistent releases the cached program held for cmd, if any.
func (e *ComputeEngine) dropPersistent(cmd *gpgpu.ComputeCommand) {
	entry, ok := e.persistent[cmd]
	if !ok {
		return
	}
	delete(e.persistent, cmd)
	if e.cache.Release(entry.program) {
		e.metrics.released(KindProgram)
	}
}

func (e *ComputeEngine) uploadUniforms(data []byte) (gpucore.BufferID, error) {
	id, err := e.adapter.CreateBuffer(len(data), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("engine: create uniform buffer: %w", err)
	}
	if err := e.adapter.WriteBuffer(id, 0, data); err != nil {
		e.adapter.DestroyBuffer(id)
		return gpucore.InvalidID, fmt.Errorf("engine: write uniform buffer: %w", err)
	}
	return id, nil
}

func (e *ComputeEngine) draw(cmd *gpgpu.ComputeCommand, program *shader.Program, va *geometry.VertexArray,
	uniforms gpucore.BufferID, textures []gpucore.TextureID) error {
	target := gpucore.TextureID(gpucore.InvalidID)
	if cmd.OutputTexture != nil {
		target = cmd.OutputTexture.ID
	}

	pass, err := e.adapter.BeginRenderPass(&gpucore.RenderPassDesc{
		Label:      passLabel,
		Target:     target,
		Clear:      true,
		ClearColor: e.clearColor,
	})
	if err != nil {
		return fmt.Errorf("engine: begin render pass: %w", err)
	}

	pass.SetPipeline(program.Pipeline)
	pass.SetVertexBuffer(va.VertexBuffer)
	pass.SetBindings(uniforms, textures)
	if va.Indexed() {
		pass.SetIndexBuffer(va.IndexBuffer)
		pass.DrawIndexed(va.IndexCount)
	} else {
		pass.Draw(va.VertexCount)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("engine: render pass: %w", err)
	}

	if err := e.adapter.Submit(); err != nil {
		return fmt.Errorf("engine: submit: %w", err)
	}
	return nil
}

// retire releases the resources of a non-persistent command. The default
// geometry and the output texture are never released.
func (e *ComputeEngine) retire(cmd *gpgpu.ComputeCommand) {
	// The command may have persisted on an earlier dispatch.
	e.dropPersistent(cmd)
	if p := cmd.ShaderProgram; p != nil && !p.IsDestroyed() {
		p.Destroy(e.adapter)
		e.metrics.released(KindProgram)
	}
	if va := cmd.VertexArray; va != nil && !va.IsDestroyed() && !e.geometry.Owns(va) {
		va.Destroy(e.adapter)
		e.metrics.released(KindVertexArray)
	}
}

// Discard releases every resource held for cmd, whether or not it persists:
// the program compiled from its source, its shader program and its vertex
// array. The output texture is left alone. Discarding a command twice is
// harmless.
func (e *ComputeEngine) Discard(cmd *gpgpu.ComputeCommand) {
	if e == nil || cmd == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.retire(cmd)
	e.metrics.setCached(e.cache.Len())
	e.logger().Debug("engine: command discarded", "owner", cmd.Owner)
}

// Stats returns current engine statistics.
func (e *ComputeEngine) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Dispatches:         e.dispatches,
		Failures:           e.failures,
		CachedPrograms:     e.cache.Len(),
		PersistentCommands: len(e.persistent),
	}
}

// Destroy releases every program the engine compiled and the default
// geometry. Resources owned by callers, including those of persistent
// commands, are not released. Destroy is idempotent; a destroyed engine
// rejects further dispatches with ErrDestroyed.
func (e *ComputeEngine) Destroy() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.persistent = make(map[*gpgpu.ComputeCommand]*persistentEntry)
	e.cache.Clear()
	e.geometry.Destroy()
	e.metrics.setCached(0)
	e.destroyed = true
	e.logger().Info("engine: destroyed", "dispatches", e.dispatches, "failures", e.failures)
}
