// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/internal/pipeline"
)

func newReportCmd(g *globalOptions) *cobra.Command {
	var (
		stateDir string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the last analysis run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateDir == "" {
				cfg, _, err := g.load(cmd)
				if err != nil {
					return err
				}
				stateDir = cfg.Pipeline.StateDir
			}

			last, err := pipeline.NewStateStore(stateDir).ReadLastRun()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(last)
			}

			if last == nil {
				_, _ = fmt.Fprintln(out, "No run state found.")
				return nil
			}

			_, _ = fmt.Fprintf(out, "Status: %s\n", statusStyle(last.Status).Render(last.Status))
			printRow(out, "Started", last.StartedAt.Format("2006-01-02 15:04:05 UTC"))
			printRow(out, "Tasks", fmt.Sprintf("%d (%d malformed)", last.Tasks, last.Malformed))
			printRow(out, "Flagged", fmt.Sprintf("%d", last.Flagged))
			printRow(out, "Anomalies", fmt.Sprintf("%d", last.Anomalies))
			printRow(out, "Trend warnings", fmt.Sprintf("%d", last.Warnings))
			printRow(out, "Recommendations", fmt.Sprintf("%d", last.Recommendations))
			if last.OutputDir != "" {
				printRow(out, "Output", last.OutputDir)
			}

			_, _ = fmt.Fprintln(out, titleStyle.Render("Stages"))
			for _, s := range last.Stages {
				line := fmt.Sprintf("  %-10s %-4s %5d", s.Stage, s.Status, s.Count)
				if s.Note != "" {
					line += "  " + s.Note
				}
				_, _ = fmt.Fprintln(out, line)
			}
			if last.DORA != nil {
				printDORA(out, *last.DORA)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "run state directory (default from configuration)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw run summary as JSON")
	return cmd
}
