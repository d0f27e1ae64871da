package gpgpu

import "testing"

func TestPass_String(t *testing.T) {
	tests := []struct {
		pass Pass
		want string
	}{
		{PassEnvironment, "environment"},
		{PassCompute, "compute"},
		{PassGlobe, "globe"},
		{PassTerrainClassification, "terrain_classification"},
		{PassOpaque, "opaque"},
		{PassTranslucent, "translucent"},
		{PassOverlay, "overlay"},
		{NumberOfPasses, "Pass(7)"},
		{Pass(-1), "Pass(-1)"},
	}
	for _, tt := range tests {
		if got := tt.pass.String(); got != tt.want {
			t.Errorf("Pass(%d).String() = %q, want %q", int(tt.pass), got, tt.want)
		}
	}
}

func TestPass_Order(t *testing.T) {
	if !(PassEnvironment < PassCompute && PassCompute < PassGlobe && PassCompute < PassOpaque) {
		t.Error("compute must run after environment and before rasterization passes")
	}
	if NumberOfPasses.Valid() || Pass(-1).Valid() {
		t.Error("out-of-range pass reported valid")
	}
	for p := PassEnvironment; p < NumberOfPasses; p++ {
		if !p.Valid() {
			t.Errorf("%v.Valid() = false", p)
		}
	}
}
