package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomad-traveller/jetsonprep/internal/runner"
	"github.com/nomad-traveller/jetsonprep/internal/source"
)

func newFetchCmd(root *rootFlags) *cobra.Command {
	opts := source.Options{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Clone the llama.cpp source tree if it is not already present",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := runner.ModeReal
			if root.dryRun {
				mode = runner.ModeDryRun
			}

			res, err := source.Ensure(cmd.Context(), mode, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dest, "dest", source.DefaultDest, "Checkout directory")
	cmd.Flags().StringVar(&opts.URL, "url", source.DefaultURL, "Repository URL")
	cmd.Flags().StringVar(&opts.Ref, "ref", "", "Tag to check out (default branch when empty)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 1, "Shallow clone depth; 0 for a full clone")

	return cmd
}
