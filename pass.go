package gpgpu

import "fmt"

// Pass classifies when a command runs within a frame. Passes execute in
// ascending order, so compute work completes after the environment pass and
// before any rasterization pass that may sample its output.
type Pass int

const (
	// PassEnvironment draws sky and background.
	PassEnvironment Pass = iota

	// PassCompute runs GPGPU commands. Every ComputeCommand is in this pass.
	PassCompute

	// PassGlobe draws the globe surface.
	PassGlobe

	// PassTerrainClassification classifies terrain.
	PassTerrainClassification

	// PassOpaque draws opaque geometry.
	PassOpaque

	// PassTranslucent draws translucent geometry.
	PassTranslucent

	// PassOverlay draws screen-space overlays.
	PassOverlay

	// NumberOfPasses is the number of passes, not a pass itself.
	NumberOfPasses
)

var passNames = [NumberOfPasses]string{
	PassEnvironment:           "environment",
	PassCompute:               "compute",
	PassGlobe:                 "globe",
	PassTerrainClassification: "terrain_classification",
	PassOpaque:                "opaque",
	PassTranslucent:           "translucent",
	PassOverlay:               "overlay",
}

// String returns the pass name.
func (p Pass) String() string {
	if p.Valid() {
		return passNames[p]
	}
	return fmt.Sprintf("Pass(%d)", int(p))
}

// Valid reports whether p names a real pass.
func (p Pass) Valid() bool {
	return p >= 0 && p < NumberOfPasses
}
