package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/gpgpu"
	"github.com/gogpu/gpgpu/backend"
	_ "github.com/gogpu/gpgpu/backend/native"
	"github.com/gogpu/gpgpu/backend/trace"
	"github.com/gogpu/gpgpu/engine"
	"github.com/gogpu/gpgpu/frame"
	"github.com/gogpu/gpgpu/gpucore"
	"github.com/gogpu/gpgpu/shader"
)

func runCmd() *cobra.Command {
	var (
		quiet       bool
		backendName string
	)

	cmd := &cobra.Command{
		Use:   "run <job.yaml>",
		Short: "Run a compute job",
		Long:  "Execute every frame of a YAML compute job. On the trace backend the recorded GPU calls and leaked resources are reported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(args[0])
			if err != nil {
				return err
			}
			b, err := backend.Open(backendName)
			if err != nil {
				return err
			}
			defer b.Close()
			return runJob(cmd.OutOrStdout(), b.Adapter(), job, !quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the op log")
	cmd.Flags().StringVar(&backendName, "backend", backend.BackendTrace, "GPU backend (trace, noop)")
	return cmd
}

// targetSetter is implemented by adapters with a default render target.
type targetSetter interface {
	SetCurrentTarget(id gpucore.TextureID)
}

// runJob executes job frame by frame through a frame queue. Persistent
// commands stay queued across frames; the others run in the first frame
// only. Frame errors are reported and joined into the returned error.
// Everything created for the job is released before runJob returns.
func runJob(w io.Writer, adapter gpucore.GPUAdapter, job *Job, printOps bool) (err error) {
	eng, err := engine.New(adapter, nil)
	if err != nil {
		return err
	}

	var (
		target     *gpucore.Texture
		textures   = make(map[string]*gpucore.Texture, len(job.Textures))
		persistent []*gpgpu.ComputeCommand
		errs       []error
	)
	defer func() {
		for _, cmd := range persistent {
			eng.Discard(cmd)
		}
		eng.Destroy()
		for _, t := range textures {
			adapter.DestroyTexture(t.ID)
		}
		if target != nil {
			adapter.DestroyTexture(target.ID)
		}
		if err != nil {
			errs = append([]error{err}, errs...)
		}
		err = errors.Join(append(errs, report(w, adapter, printOps))...)
	}()

	target, err = gpucore.NewTexture(adapter, job.Target.Width, job.Target.Height, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if ts, ok := adapter.(targetSetter); ok {
		ts.SetCurrentTarget(target.ID)
	}

	for _, name := range sortedKeys(job.Textures) {
		size := job.Textures[name]
		t, err := gpucore.NewTexture(adapter, size.Width, size.Height, gputypes.TextureFormatRGBA8Unorm)
		if err != nil {
			return fmt.Errorf("create texture %q: %w", name, err)
		}
		textures[name] = t
	}

	var frameIndex int
	queue := frame.NewQueue()
	for i := range job.Commands {
		cmd, err := buildCommand(&job.Commands[i], textures, &frameIndex)
		if err != nil {
			return err
		}
		if err := queue.Add(cmd); err != nil {
			return err
		}
		if cmd.Persists {
			persistent = append(persistent, cmd)
		}
	}

	for frameIndex = 0; frameIndex < job.Frames; frameIndex++ {
		if err := queue.ExecuteCompute(eng); err != nil {
			fmt.Fprintf(w, "frame %d: %v\n", frameIndex, err)
			errs = append(errs, fmt.Errorf("frame %d: %w", frameIndex, err))
		}
	}

	fmt.Fprintf(w, "job %s: %d frames, %d commands\n", job.Name, job.Frames, len(job.Commands))
	fmt.Fprintln(w, eng.Stats())
	return nil
}

// report prints the op log and leaked resources of a trace adapter. Other
// adapters report nothing. Leaks are returned as an error.
func report(w io.Writer, adapter gpucore.GPUAdapter, printOps bool) error {
	recorder, ok := adapter.(*trace.Adapter)
	if !ok {
		return nil
	}
	if printOps {
		fmt.Fprintln(w, "ops:")
		for _, op := range recorder.Ops() {
			fmt.Fprintf(w, "  %s\n", op)
		}
	}

	leaks := recorder.Leaks()
	if len(leaks) == 0 {
		fmt.Fprintln(w, "leaks: none")
		return nil
	}
	fmt.Fprintf(w, "leaks: %d\n", len(leaks))
	for _, r := range leaks {
		fmt.Fprintf(w, "  %s#%d %q\n", r.Kind, r.ID, r.Label)
	}
	return fmt.Errorf("%d resources leaked", len(leaks))
}

// buildCommand turns a command spec into a compute command. Uniform
// providers read frameIndex when the command is dispatched.
func buildCommand(spec *CommandSpec, textures map[string]*gpucore.Texture, frameIndex *int) (*gpgpu.ComputeCommand, error) {
	uniforms := make(gpgpu.UniformMap, len(spec.Uniforms))
	for name, raw := range spec.Uniforms {
		if raw == frameUniform {
			uniforms[name] = gpgpu.UniformFunc(func() any { return float32(*frameIndex) })
			continue
		}
		v, err := uniformValue(raw, textures)
		if err != nil {
			return nil, fmt.Errorf("command %q: uniform %s: %w", spec.Name, name, err)
		}
		uniforms[name] = gpgpu.UniformFunc(func() any { return v })
	}

	opts := &gpgpu.Options{
		FragmentShaderSource: &shader.Source{
			Sources:    []string{spec.Source},
			Defines:    spec.Defines,
			EntryPoint: spec.Entry,
		},
		UniformMap: uniforms,
		Persists:   spec.Persists,
		Owner:      spec.Name,
	}
	if spec.Output != "" {
		opts.OutputTexture = textures[spec.Output]
	}
	return gpgpu.NewComputeCommand(opts), nil
}

func sortedKeys(m map[string]Size) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
