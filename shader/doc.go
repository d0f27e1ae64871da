// Package shader compiles GPGPU kernels into GPU programs.
//
// A kernel is the fragment stage of a GPGPU dispatch, written in WGSL. It is
// paired with a vertex stage, by default [ViewportQuadVS], and compiled into a
// single shader module with naga:
//
//	WGSL (vertex + kernel) -> naga -> SPIR-V -> shader module -> render pipeline
//
// The kernel receives the interpolated texture coordinate at location 0:
//
//	@fragment
//	fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
//	    return vec4<f32>(uv, 0.0, 1.0);
//	}
//
// Uniform values are packed into a single uniform buffer at group 0,
// binding 0, following WGSL uniform address space layout rules (see
// [PackUniforms]). Sampled textures follow at bindings 1..n, each paired
// with a filtering sampler at the next binding.
//
// [ProgramCache] shares compiled programs between dispatches with identical
// source text, vertex layout and binding count.
package shader
