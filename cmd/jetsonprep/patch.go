package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomad-traveller/jetsonprep/internal/patch"
)

func newPatchCmd(root *rootFlags) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Insert the fp16 compatibility shims into ggml.c",
		Long: "Locates ggml.c (in the working directory or a llama.cpp checkout), backs it\n" +
			"up with a timestamp suffix, and inserts the Jetson Nano fp16 compatibility\n" +
			"shims exactly once. A file already carrying the marker is left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(root.verbose)
			if err != nil {
				return err
			}

			if root.dryRun {
				path, patched, err := patch.AlreadyPatched(target)
				if err != nil {
					return err
				}
				if patched {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already patched, nothing to do\n", path)
					return nil
				}
				log.Action(true, fmt.Sprintf("insert compatibility block into %s", path))
				return nil
			}

			res, err := patch.Insert(target)
			if err != nil {
				return err
			}

			if !res.Inserted {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already patched, nothing to do\n", res.Path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "patched %s (backup: %s)\n", res.Path, res.BackupPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "file", "f", "", "Explicit path to ggml.c (default: search conventional locations)")

	return cmd
}
