package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nomad-traveller/jetsonprep/internal/logger"
)

type rootFlags struct {
	verbose bool
	dryRun  bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "jetsonprep",
		Short:         "jetsonprep converges a Jetson Nano toward a llama.cpp GPU build environment",
		Long: "jetsonprep prepares an NVIDIA Jetson Nano for building llama.cpp with CUDA 10.2:\n" +
			"swap sizing, build packages, optional VS Code, the /usr/local/cuda symlink and\n" +
			"shell profile lines, plus a compatibility patch for ggml.c. Every step is\n" +
			"idempotent: what is already satisfied is skipped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Print the actions that would run without mutating the host")

	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newPatchCmd(flags))
	cmd.AddCommand(newFetchCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newLogger(verbose bool) (*logger.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	human := term.IsTerminal(int(os.Stdout.Fd()))
	return logger.New(logger.Options{Level: level, HumanReadable: human})
}
