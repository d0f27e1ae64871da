package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/math/f32"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/gpgpu/gpucore"
)

// frameUniform is the uniform value replaced by the index of the frame
// being executed.
const frameUniform = "$frame"

// Job is a YAML compute job.
//
//	name: blur
//	frames: 3
//	target: {width: 256, height: 256}
//	textures:
//	  noise: {width: 64, height: 64}
//	commands:
//	  - name: gradient
//	    kernel: gradient.wgsl
//	    defines: [SMOOTH]
//	    uniforms: {gain: 0.5, frame: $frame, input: noise}
//	    output: noise
//	    persists: true
//
// Uniforms are packed in name order. A string uniform names a texture, or
// is $frame for the current frame index.
type Job struct {
	Name     string          `yaml:"name"`
	Frames   int             `yaml:"frames"`
	Target   Size            `yaml:"target"`
	Textures map[string]Size `yaml:"textures"`
	Commands []CommandSpec   `yaml:"commands"`
}

// Size is a texture size in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CommandSpec describes one compute command of a job.
type CommandSpec struct {
	Name string `yaml:"name"`

	// Kernel is a WGSL file, relative to the job file.
	Kernel string `yaml:"kernel"`

	// Source is inline WGSL, used when Kernel is empty.
	Source string `yaml:"source"`

	Entry    string         `yaml:"entry"`
	Defines  []string       `yaml:"defines"`
	Uniforms map[string]any `yaml:"uniforms"`

	// Output names a job texture. Empty renders into the job target.
	Output   string `yaml:"output"`
	Persists bool   `yaml:"persists"`
}

// Defaults for jobs that leave fields unset.
const (
	defaultFrames       = 1
	defaultTargetWidth  = 256
	defaultTargetHeight = 256
)

// loadJob reads a job file and resolves kernel paths against its directory.
func loadJob(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open job: %w", err)
	}
	defer f.Close()

	job, err := decodeJob(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range job.Commands {
		c := &job.Commands[i]
		if c.Kernel == "" {
			continue
		}
		if !filepath.IsAbs(c.Kernel) {
			c.Kernel = filepath.Join(dir, c.Kernel)
		}
		text, err := os.ReadFile(c.Kernel)
		if err != nil {
			return nil, fmt.Errorf("command %q: read kernel: %w", c.Name, err)
		}
		c.Source = string(text)
	}
	return job, nil
}

// decodeJob parses and validates a job, filling in defaults.
func decodeJob(r io.Reader) (*Job, error) {
	var job Job
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&job); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}

	if job.Frames == 0 {
		job.Frames = defaultFrames
	}
	if job.Frames < 0 {
		return nil, fmt.Errorf("frames must not be negative, got %d", job.Frames)
	}
	if job.Target.Width == 0 && job.Target.Height == 0 {
		job.Target = Size{Width: defaultTargetWidth, Height: defaultTargetHeight}
	}
	if err := job.Target.validate(); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	for name, size := range job.Textures {
		if err := size.validate(); err != nil {
			return nil, fmt.Errorf("texture %q: %w", name, err)
		}
	}
	if len(job.Commands) == 0 {
		return nil, errors.New("job has no commands")
	}
	for i, c := range job.Commands {
		if c.Kernel == "" && c.Source == "" {
			return nil, fmt.Errorf("command %d (%s): kernel or source is required", i, c.Name)
		}
		if c.Output != "" {
			if _, ok := job.Textures[c.Output]; !ok {
				return nil, fmt.Errorf("command %d (%s): unknown output texture %q", i, c.Name, c.Output)
			}
		}
	}
	return &job, nil
}

func (s Size) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", s.Width, s.Height)
	}
	return nil
}

// uniformValue converts a decoded YAML uniform to a value the shader
// package can pack. Lists of 2, 3 or 4 numbers are vectors; 9 and 16 are
// row-major matrices.
func uniformValue(v any, textures map[string]*gpucore.Texture) (any, error) {
	switch v := v.(type) {
	case int:
		return float32(v), nil
	case float64:
		return float32(v), nil
	case bool:
		return v, nil
	case string:
		if t, ok := textures[v]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown texture %q", v)
	case []any:
		nums := make([]float32, len(v))
		for i, e := range v {
			switch n := e.(type) {
			case int:
				nums[i] = float32(n)
			case float64:
				nums[i] = float32(n)
			default:
				return nil, fmt.Errorf("element %d is %T, want a number", i, e)
			}
		}
		switch len(nums) {
		case 2:
			return [2]float32(nums), nil
		case 3:
			return [3]float32(nums), nil
		case 4:
			return [4]float32(nums), nil
		case 9:
			return f32.Mat3(nums), nil
		case 16:
			return f32.Mat4(nums), nil
		}
		return nil, fmt.Errorf("%d-element list is not a vector or matrix", len(nums))
	}
	return nil, fmt.Errorf("unsupported uniform type %T", v)
}
