package shader

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/gpgpu/gpucore"
)

func readF32(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}

func TestPackUniforms_Layout(t *testing.T) {
	block, err := PackUniforms([]UniformValue{
		{"a", float32(1)},
		{"b", f32.Vec2{2, 3}},
		{"c", f32.Vec3{4, 5, 6}},
		{"d", float32(7)},
		{"e", f32.Vec4{8, 9, 10, 11}},
		{"f", true},
	})
	if err != nil {
		t.Fatalf("PackUniforms() error = %v", err)
	}

	tests := []struct {
		name   string
		offset int
		size   int
	}{
		{"a", 0, 4},
		{"b", 8, 8},
		{"c", 16, 12},
		{"d", 28, 4},
		{"e", 32, 16},
		{"f", 48, 4},
	}
	for _, tt := range tests {
		f, ok := block.Field(tt.name)
		if !ok {
			t.Errorf("field %s missing", tt.name)
			continue
		}
		if f.Offset != tt.offset || f.Size != tt.size {
			t.Errorf("field %s = {offset %d, size %d}, want {offset %d, size %d}",
				tt.name, f.Offset, f.Size, tt.offset, tt.size)
		}
	}

	if len(block.Data) != 64 {
		t.Errorf("len(Data) = %d, want 64", len(block.Data))
	}
	if got := readF32(block.Data, 20); got != 5 {
		t.Errorf("c.y = %v, want 5", got)
	}
	if got := binary.LittleEndian.Uint32(block.Data[48:]); got != 1 {
		t.Errorf("f = %d, want 1", got)
	}
}

func TestPackUniforms_MatricesColumnMajor(t *testing.T) {
	m3 := f32.Mat3{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	block, err := PackUniforms([]UniformValue{{"m", m3}})
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Data) != 48 {
		t.Fatalf("len(Data) = %d, want 48", len(block.Data))
	}
	// Column 0 is (1, 4, 7), column 1 starts at the next vec4 slot.
	want := []struct {
		offset int
		value  float32
	}{{0, 1}, {4, 4}, {8, 7}, {12, 0}, {16, 2}, {20, 5}, {32, 3}}
	for _, w := range want {
		if got := readF32(block.Data, w.offset); got != w.value {
			t.Errorf("mat3 @%d = %v, want %v", w.offset, got, w.value)
		}
	}

	var m4 f32.Mat4
	m4[1] = 42 // row 0, column 1
	block, err = PackUniforms([]UniformValue{{"x", float32(0)}, {"m", m4}})
	if err != nil {
		t.Fatal(err)
	}
	f, _ := block.Field("m")
	if f.Offset != 16 || f.Size != 64 {
		t.Errorf("mat4 field = %+v, want offset 16 size 64", f)
	}
	if got := readF32(block.Data, 16+16); got != 42 {
		t.Errorf("mat4 column 1 row 0 = %v, want 42", got)
	}
}

func TestPackUniforms_Textures(t *testing.T) {
	tex := &gpucore.Texture{ID: 7, Width: 4, Height: 4}
	block, err := PackUniforms([]UniformValue{
		{"image", tex},
		{"scale", float32(2)},
		{"lut", gpucore.Texture{ID: 9}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Textures) != 2 || block.Textures[0] != 7 || block.Textures[1] != 9 {
		t.Errorf("Textures = %v, want [7 9]", block.Textures)
	}
	if len(block.Fields) != 1 || block.Fields[0].Offset != 0 {
		t.Errorf("Fields = %+v, want scale at 0", block.Fields)
	}
	if len(block.Data) != 16 {
		t.Errorf("len(Data) = %d, want 16", len(block.Data))
	}
}

func TestPackUniforms_Empty(t *testing.T) {
	block, err := PackUniforms(nil)
	if err != nil {
		t.Fatal(err)
	}
	if block.Data != nil || len(block.Textures) != 0 {
		t.Errorf("empty block = %+v", block)
	}
}

func TestPackUniforms_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string", "nope"},
		{"nil", nil},
		{"nil texture", (*gpucore.Texture)(nil)},
		{"int overflow", math.MaxInt32 + 1},
		{"slice", []float32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PackUniforms([]UniformValue{{"u", tt.value}})
			if !errors.Is(err, ErrUnsupportedUniform) {
				t.Errorf("error = %v, want ErrUnsupportedUniform", err)
			}
		})
	}
}

func TestPackUniforms_Scalars(t *testing.T) {
	block, err := PackUniforms([]UniformValue{
		{"i", -3},
		{"j", int32(5)},
		{"u", uint32(9)},
		{"d", 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := int32(binary.LittleEndian.Uint32(block.Data[0:])); got != -3 {
		t.Errorf("i = %d, want -3", got)
	}
	if got := binary.LittleEndian.Uint32(block.Data[8:]); got != 9 {
		t.Errorf("u = %d, want 9", got)
	}
	if got := readF32(block.Data, 12); got != 0.5 {
		t.Errorf("d = %v, want 0.5", got)
	}
}
