package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/gpgpu/shader"
)

func compileCmd() *cobra.Command {
	var (
		defines []string
		entry   string
	)

	cmd := &cobra.Command{
		Use:   "compile <kernel.wgsl>",
		Short: "Compile a kernel with the default vertex stage",
		Long:  "Link a WGSL fragment kernel with the viewport quad vertex stage and compile it to SPIR-V",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read kernel: %w", err)
			}

			desc := &shader.ProgramDesc{
				Label: args[0],
				Fragment: &shader.Source{
					Sources:    []string{string(text)},
					Defines:    defines,
					EntryPoint: entry,
				},
			}
			words, err := shader.CompileToSPIRV(desc.Text())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d SPIR-V words (entry %s)\n",
				args[0], len(words), desc.Fragment.Entry())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "boolean constant set to true (repeatable)")
	cmd.Flags().StringVar(&entry, "entry", "", "fragment entry point (default fs_main)")
	return cmd
}
