package gpgpu

import (
	"sort"

	"github.com/gogpu/gpgpu/shader"
)

// UniformProvider supplies the value of one uniform at dispatch time.
//
// The returned value must be one of the types accepted by
// shader.PackUniforms, e.g. float32, f32.Vec4 or *gpucore.Texture.
type UniformProvider interface {
	UniformValue() any
}

// UniformFunc adapts a function to UniformProvider.
type UniformFunc func() any

// UniformValue calls f.
func (f UniformFunc) UniformValue() any { return f() }

// UniformMap maps uniform names, as declared in the kernel, to providers.
type UniformMap map[string]UniformProvider

// Names returns the uniform names in sorted order.
func (m UniformMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve evaluates every provider exactly once, in name order, and returns
// the values in that order. Nil providers resolve to a nil value.
func (m UniformMap) Resolve() []shader.UniformValue {
	if len(m) == 0 {
		return nil
	}
	values := make([]shader.UniformValue, 0, len(m))
	for _, name := range m.Names() {
		var v any
		if p := m[name]; p != nil {
			v = p.UniformValue()
		}
		values = append(values, shader.UniformValue{Name: name, Value: v})
	}
	return values
}
