// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpgpu/geometry"
	"github.com/gogpu/gpgpu/shader"
)

// GeometryProvider supplies the vertex array drawn for commands that do not
// carry their own. The provider owns that array: the engine never destroys
// it on behalf of a command.
//
// geometry.ViewportQuad is the default implementation.
type GeometryProvider interface {
	// VertexArray returns the default geometry, creating it if needed.
	VertexArray() (*geometry.VertexArray, error)

	// Owns reports whether va is managed by the provider.
	Owns(va *geometry.VertexArray) bool

	// Destroy releases the provider's geometry.
	Destroy()
}

// Config holds configuration for creating a ComputeEngine.
// The zero value selects every default.
type Config struct {
	// Geometry supplies the default vertex array.
	// Defaults to geometry.NewViewportQuad(adapter) if nil.
	Geometry GeometryProvider

	// Compiler compiles fragment shader sources into programs.
	// Defaults to shader.NewNagaCompiler() if nil.
	Compiler shader.Compiler

	// VertexShader is the vertex stage linked with every fragment shader
	// source. Defaults to shader.ViewportQuadVS if empty.
	VertexShader string

	// VertexEntryPoint is the entry point of VertexShader.
	// Defaults to shader.DefaultVertexEntryPoint if empty.
	VertexEntryPoint string

	// ClearColor is the color the output is cleared to before the kernel
	// is drawn. The zero value is transparent black.
	ClearColor gputypes.Color

	// Metrics receives dispatch metrics. Nil disables metrics.
	Metrics *Metrics

	// Logger overrides the module logger (gpgpu.Logger) for this engine.
	Logger *slog.Logger
}
