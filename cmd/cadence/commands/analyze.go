// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/delivery"
	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/export"
	"github.com/bartekus/cadence/internal/ingest"
	"github.com/bartekus/cadence/internal/pipeline"
	"github.com/bartekus/cadence/internal/projection"
	"github.com/bartekus/cadence/internal/synth"
)

type analyzeOptions struct {
	input     string
	synthetic int
	outDir    string
	format    string
	seed      uint64
}

// bottlenecks is the shape of the bottlenecks artifact.
type bottlenecks struct {
	Reports []detect.BottleneckReport `json:"reports" yaml:"reports"`
	Summary detect.Summary            `json:"summary" yaml:"summary"`
}

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a batch of delivery tasks",
		Long: `Derive lifecycle metrics, detect bottlenecks, anomalies and sprint
regressions, compute DORA metrics and write every artifact to the output
directory. Tasks come from --input (JSON, YAML or CSV) or --synthetic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "task file (.json, .yaml, .yml or .csv)")
	f.IntVar(&o.synthetic, "synthetic", 0, "analyze N generated tasks instead of an input file")
	f.StringVarP(&o.outDir, "out", "o", "out", "output directory")
	f.StringVar(&o.format, "format", "json", "structured artifact format (json or yaml)")
	f.Uint64Var(&o.seed, "seed", synth.DefaultOptions().Seed, "seed for --synthetic and the anomaly model")
	cmd.MarkFlagsMutuallyExclusive("input", "synthetic")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globalOptions, o *analyzeOptions) error {
	if o.input == "" && o.synthetic <= 0 {
		return clierr.New(clierr.ExitUsage, "one of --input or --synthetic N is required")
	}
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "invalid --format", err)
	}

	cfg, log, err := g.load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Anomaly.Seed = o.seed
	}

	tasks, err := loadTasks(o)
	if err != nil {
		return err
	}
	log.Info().Int("tasks", len(tasks)).Msg("tasks loaded")

	opts, err := pipeline.OptionsFrom(cfg)
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "invalid configuration", err)
	}
	p := pipeline.New(pipeline.Stages(opts, log), pipeline.NewStateStore(cfg.Pipeline.StateDir), log)

	a, last, err := p.Run(cmd.Context(), tasks)
	if err != nil {
		if errors.Is(err, delivery.ErrMalformedTask) {
			return clierr.Wrap(clierr.ExitMalformed, "malformed input", err)
		}
		return clierr.Wrap(clierr.ExitRuntime, "analysis failed", err)
	}

	if err := writeArtifacts(o.outDir, format, a, log); err != nil {
		return clierr.Wrap(clierr.ExitRuntime, "writing artifacts", err)
	}
	last.OutputDir = o.outDir
	if err := p.Persist(last); err != nil {
		log.Warn().Err(err).Msg("could not update run state")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s %d tasks, %d flagged, %d anomalies, %d trend warnings\n",
		titleStyle.Render("Analyzed"), len(a.Records), a.Flagged(), len(a.Anomalies.Anomalies), len(a.Warnings))
	if len(a.Malformed) > 0 {
		_, _ = fmt.Fprintf(out, "%s %d malformed tasks skipped\n", failStyle.Render("Warning:"), len(a.Malformed))
	}
	if a.HasDORA {
		printDORA(out, a.DORA)
	}
	printRecommendations(out, a.Recommendations, 5)
	_, _ = fmt.Fprintf(out, "Artifacts written to %s\n", o.outDir)
	return nil
}

func loadTasks(o *analyzeOptions) ([]delivery.TaskRecord, error) {
	if o.input == "" {
		so := synth.DefaultOptions()
		so.Count = o.synthetic
		so.Seed = o.seed
		tasks, err := synth.Generate(so)
		if err != nil {
			return nil, clierr.Wrap(clierr.ExitUsage, "generating tasks", err)
		}
		return tasks, nil
	}

	tasks, err := ingest.LoadFile(o.input)
	switch {
	case err == nil:
		return tasks, nil
	case errors.Is(err, ingest.ErrUnknownFormat), errors.Is(err, os.ErrNotExist):
		return nil, clierr.Wrap(clierr.ExitUsage, "invalid --input", err)
	default:
		return nil, clierr.Wrap(clierr.ExitMalformed, "malformed input", err)
	}
}

func writeArtifacts(dir string, format export.Format, a *pipeline.Analysis, log zerolog.Logger) error {
	w := export.NewWriter(dir, format, log)

	if err := w.MetricsCSV(a.Records); err != nil {
		return err
	}
	artifacts := []struct {
		name string
		v    any
		n    int
	}{
		{"bottlenecks", bottlenecks{Reports: a.Detection.Reports, Summary: a.Aggregate}, len(a.Detection.Reports)},
		{"anomalies", a.Anomalies, len(a.Anomalies.Anomalies) + len(a.Anomalies.Skipped)},
		{"trends", a.Warnings, len(a.Warnings)},
		{"advice", a.Advice, len(a.Advice)},
		{"recommendations", a.Recommendations, len(a.Recommendations)},
	}
	for _, art := range artifacts {
		if err := w.Artifact(art.name, art.v, art.n); err != nil {
			return err
		}
	}
	if err := w.DORA(a.DORA, a.HasDORA); err != nil {
		return err
	}

	summary := projection.RenderSummary(projection.Run{
		Tasks:           len(a.Tasks),
		Malformed:       len(a.Malformed),
		Records:         a.Records,
		Reports:         a.Detection.Reports,
		Aggregate:       a.Aggregate,
		Anomalies:       len(a.Anomalies.Anomalies),
		DORA:            a.DORA,
		HasDORA:         a.HasDORA,
		Warnings:        a.Warnings,
		Recommendations: a.Recommendations,
	})
	return w.Text("summary.md", summary)
}
