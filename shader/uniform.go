package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/gpgpu/gpucore"
)

// ErrUnsupportedUniform is returned when a uniform value has a type that
// cannot be passed to a kernel.
var ErrUnsupportedUniform = errors.New("shader: unsupported uniform type")

// UniformValue is a resolved uniform.
type UniformValue struct {
	Name  string
	Value any
}

// Field locates a packed uniform inside Block.Data.
type Field struct {
	Name   string
	Offset int
	Size   int
}

// Block is a packed uniform buffer plus the textures to bind after it.
type Block struct {
	// Data is the uniform buffer contents, nil when there are no
	// non-texture uniforms.
	Data []byte

	// Fields lists packed uniforms in declaration order.
	Fields []Field

	// Textures lists sampled textures in declaration order.
	Textures []gpucore.TextureID
}

// Field returns the packed location of the named uniform.
func (b *Block) Field(name string) (Field, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PackUniforms lays out values as the members of a WGSL struct in the
// uniform address space, in the given order.
//
// Supported types and their WGSL counterparts:
//
//	float32, float64            f32
//	int, int32                  i32
//	uint32                      u32
//	bool                        u32 (0 or 1)
//	f32.Vec2, [2]float32        vec2<f32>
//	f32.Vec3, [3]float32        vec3<f32>
//	f32.Vec4, [4]float32        vec4<f32>
//	f32.Mat3                    mat3x3<f32>
//	f32.Mat4                    mat4x4<f32>
//	*gpucore.Texture, Texture   texture_2d<f32> binding
//
// Matrices are given in row-major order and stored column-major. The block
// size is rounded up to 16 bytes.
func PackUniforms(values []UniformValue) (*Block, error) {
	b := &Block{}
	var data []byte

	for _, u := range values {
		switch v := u.Value.(type) {
		case *gpucore.Texture:
			if v == nil {
				return nil, fmt.Errorf("%w: %s is a nil texture", ErrUnsupportedUniform, u.Name)
			}
			b.Textures = append(b.Textures, v.ID)
			continue
		case gpucore.Texture:
			b.Textures = append(b.Textures, v.ID)
			continue
		}

		words, align, err := uniformWords(u.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is %T", err, u.Name, u.Value)
		}
		offset := roundUp(len(data), align)
		for len(data) < offset {
			data = append(data, 0)
		}
		for _, w := range words {
			data = binary.LittleEndian.AppendUint32(data, w)
		}
		b.Fields = append(b.Fields, Field{Name: u.Name, Offset: offset, Size: len(words) * 4})
	}

	if len(data) > 0 {
		size := roundUp(len(data), 16)
		for len(data) < size {
			data = append(data, 0)
		}
		b.Data = data
	}
	return b, nil
}

// uniformWords encodes a value as 32-bit words and returns its alignment.
func uniformWords(value any) ([]uint32, int, error) {
	fl := math.Float32bits
	switch v := value.(type) {
	case float32:
		return []uint32{fl(v)}, 4, nil
	case float64:
		return []uint32{fl(float32(v))}, 4, nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, 0, fmt.Errorf("%w: int out of i32 range", ErrUnsupportedUniform)
		}
		return []uint32{uint32(int32(v))}, 4, nil
	case int32:
		return []uint32{uint32(v)}, 4, nil
	case uint32:
		return []uint32{v}, 4, nil
	case bool:
		if v {
			return []uint32{1}, 4, nil
		}
		return []uint32{0}, 4, nil
	case f32.Vec2:
		return []uint32{fl(v[0]), fl(v[1])}, 8, nil
	case [2]float32:
		return []uint32{fl(v[0]), fl(v[1])}, 8, nil
	case f32.Vec3:
		return []uint32{fl(v[0]), fl(v[1]), fl(v[2])}, 16, nil
	case [3]float32:
		return []uint32{fl(v[0]), fl(v[1]), fl(v[2])}, 16, nil
	case f32.Vec4:
		return []uint32{fl(v[0]), fl(v[1]), fl(v[2]), fl(v[3])}, 16, nil
	case [4]float32:
		return []uint32{fl(v[0]), fl(v[1]), fl(v[2]), fl(v[3])}, 16, nil
	case f32.Mat3:
		// Each column occupies a vec4 slot.
		w := make([]uint32, 0, 12)
		for c := 0; c < 3; c++ {
			w = append(w, fl(v[c]), fl(v[3+c]), fl(v[6+c]), 0)
		}
		return w, 16, nil
	case f32.Mat4:
		w := make([]uint32, 0, 16)
		for c := 0; c < 4; c++ {
			w = append(w, fl(v[c]), fl(v[4+c]), fl(v[8+c]), fl(v[12+c]))
		}
		return w, 16, nil
	default:
		return nil, 0, ErrUnsupportedUniform
	}
}

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}
