package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomad-traveller/jetsonprep/internal/config"
	"github.com/nomad-traveller/jetsonprep/internal/engine"
	"github.com/nomad-traveller/jetsonprep/internal/probe"
	"github.com/nomad-traveller/jetsonprep/internal/runner"
)

type applyOptions struct {
	ConfigPath    string
	SwapSizeGB    int
	NoSwap        bool
	NoUpdate      bool
	VSCode        bool
	NoVSCode      bool
	VSCodeVersion string
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge the host toward the build environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := assembleSettings(opts, root)
			if err != nil {
				return err
			}
			return applyCmdRunner(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a YAML overrides file")
	cmd.Flags().IntVar(&opts.SwapSizeGB, "swap-size", 0, "Swap file size in GB (default 8)")
	cmd.Flags().BoolVar(&opts.NoSwap, "no-swap", false, "Skip swap management entirely")
	cmd.Flags().BoolVar(&opts.NoUpdate, "no-update", false, "Skip the package index update phase")
	cmd.Flags().BoolVar(&opts.VSCode, "vscode", false, "Install VS Code if absent (default)")
	cmd.Flags().BoolVar(&opts.NoVSCode, "no-vscode", false, "Skip the VS Code install")
	cmd.Flags().StringVar(&opts.VSCodeVersion, "vscode-version", "", "VS Code version to install, or 'latest'")
	cmd.MarkFlagsMutuallyExclusive("vscode", "no-vscode")

	return cmd
}

// assembleSettings layers configuration: defaults, then the overrides
// file, then explicit flags.
func assembleSettings(opts applyOptions, root *rootFlags) (config.Settings, error) {
	cfg := config.Defaults()

	if opts.ConfigPath != "" {
		if err := cfg.ApplyOverridesFile(opts.ConfigPath); err != nil {
			return cfg, err
		}
	}

	if opts.SwapSizeGB > 0 {
		cfg.SwapSizeGB = opts.SwapSizeGB
	}
	if opts.NoSwap {
		cfg.DisableSwap = true
	}
	if opts.NoUpdate {
		cfg.DisableUpdate = true
	}
	if opts.VSCode {
		cfg.InstallVSCode = true
	}
	if opts.NoVSCode {
		cfg.InstallVSCode = false
	}
	if opts.VSCodeVersion != "" {
		cfg.VSCodeVersion = opts.VSCodeVersion
	}
	cfg.DryRun = root.dryRun
	cfg.Verbose = root.verbose

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runApply(cmd *cobra.Command, cfg config.Settings) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}

	mode := runner.ModeReal
	if cfg.DryRun {
		mode = runner.ModeDryRun
	}
	run := runner.New(mode, log)

	plan := engine.BuildPlan(cfg, run, probe.New())
	results, runErr := engine.Run(cmd.Context(), plan, log)

	fmt.Fprintln(cmd.OutOrStdout(), engine.RenderSummary(results))

	return runErr
}
