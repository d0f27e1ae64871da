package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

// DefaultFragmentEntryPoint is the kernel entry point used when a Source
// does not name one.
const DefaultFragmentEntryPoint = "fs_main"

// DefaultVertexEntryPoint is the entry point of ViewportQuadVS.
const DefaultVertexEntryPoint = "vs_main"

// ViewportQuadVS is the default vertex stage. It consumes the
// geometry.ViewportQuadLayout vertex format.
//
//go:embed shaders/viewport_quad.wgsl
var ViewportQuadVS string

// Source is the WGSL source text of a kernel.
//
// Defines are emitted as `const NAME: bool = true;` declarations ahead of the
// sources, so kernels can branch on them with `if NAME { ... }`.
type Source struct {
	// Sources are concatenated in order.
	Sources []string

	// Defines are boolean constants set to true.
	Defines []string

	// EntryPoint is the fragment entry point. Empty selects
	// DefaultFragmentEntryPoint.
	EntryPoint string
}

// NewSource creates a Source from one or more WGSL fragments.
func NewSource(sources ...string) *Source {
	return &Source{Sources: sources}
}

// Entry returns the fragment entry point.
func (s *Source) Entry() string {
	if s.EntryPoint == "" {
		return DefaultFragmentEntryPoint
	}
	return s.EntryPoint
}

// Text returns the combined kernel text. Identical sources and defines
// always produce identical text.
func (s *Source) Text() string {
	var b strings.Builder
	for _, d := range s.Defines {
		fmt.Fprintf(&b, "const %s: bool = true;\n", d)
	}
	for _, src := range s.Sources {
		b.WriteString(src)
		if !strings.HasSuffix(src, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
