package shader

import (
	"strings"
	"testing"
)

func TestSource_Text(t *testing.T) {
	tests := []struct {
		name string
		src  *Source
		want string
	}{
		{"single", NewSource("fn a() {}"), "fn a() {}\n"},
		{"keeps trailing newline", NewSource("fn a() {}\n"), "fn a() {}\n"},
		{"concatenates", NewSource("fn a() {}", "fn b() {}"), "fn a() {}\nfn b() {}\n"},
		{
			"defines first",
			&Source{Sources: []string{"fn a() {}"}, Defines: []string{"HIGH_PRECISION", "FLIP_Y"}},
			"const HIGH_PRECISION: bool = true;\nconst FLIP_Y: bool = true;\nfn a() {}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSource_Entry(t *testing.T) {
	if got := NewSource("x").Entry(); got != DefaultFragmentEntryPoint {
		t.Errorf("Entry() = %q, want %q", got, DefaultFragmentEntryPoint)
	}
	s := &Source{EntryPoint: "kernel"}
	if got := s.Entry(); got != "kernel" {
		t.Errorf("Entry() = %q, want kernel", got)
	}
}

func TestViewportQuadVS(t *testing.T) {
	for _, want := range []string{"fn vs_main", "@location(0) position: vec2<f32>", "@location(1) textureCoordinates"} {
		if !strings.Contains(ViewportQuadVS, want) {
			t.Errorf("ViewportQuadVS missing %q", want)
		}
	}
}
