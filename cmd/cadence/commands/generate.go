// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/ingest"
	"github.com/bartekus/cadence/internal/projection"
	"github.com/bartekus/cadence/internal/synth"
)

func newGenerateCmd() *cobra.Command {
	defaults := synth.DefaultOptions()
	var (
		count int
		seed  uint64
		out   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic delivery tasks",
		Long:  "Write a reproducible batch of synthetic tasks. The format follows the --out extension (.json, .yaml, .yml or .csv).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ingest.FormatOf(out)
			if err != nil {
				return clierr.Wrap(clierr.ExitUsage, "invalid --out", err)
			}

			opts := synth.DefaultOptions()
			opts.Count = count
			opts.Seed = seed
			tasks, err := synth.Generate(opts)
			if err != nil {
				return clierr.Wrap(clierr.ExitUsage, "generating tasks", err)
			}

			var buf bytes.Buffer
			if err := ingest.Encode(&buf, format, tasks); err != nil {
				return fmt.Errorf("encoding tasks: %w", err)
			}
			if err := projection.AtomicWrite(out, buf.Bytes()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tasks to %s\n", len(tasks), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaults.Count, "number of tasks")
	cmd.Flags().Uint64Var(&seed, "seed", defaults.Seed, "random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "tasks.json", "output file")
	return cmd
}
