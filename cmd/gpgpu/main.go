// Command gpgpu compiles GPGPU kernels and runs compute jobs against the
// device-less trace backend.
//
// Usage:
//
//	gpgpu compile KERNEL.wgsl [--define NAME]...
//	gpgpu run JOB.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/gpgpu"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "gpgpu",
		Short:         "Fragment shader GPGPU toolkit",
		Long:          "Compile WGSL kernels and run compute jobs on the trace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			gpgpu.SetLogger(nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); empty disables logging")

	rootCmd.AddCommand(
		compileCmd(),
		runCmd(),
	)
	return rootCmd
}

// setupLogging routes library logs to stderr through charmbracelet/log.
func setupLogging(cmd *cobra.Command, level string) error {
	if level == "" {
		gpgpu.SetLogger(nil)
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "gpgpu",
		Level:           lvl,
		ReportTimestamp: true,
	})
	gpgpu.SetLogger(slog.New(logger))
	return nil
}
