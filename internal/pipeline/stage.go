// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bartekus/cadence/internal/delivery"
	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/recommend"
)

// Stage is one step of the analysis. Run reads what earlier stages left in
// the Analysis and adds its own output; the returned count is logged and
// recorded in the run summary.
type Stage interface {
	ID() string
	Run(ctx context.Context, a *Analysis) (int, error)
}

// ErrStageSkipped lets a stage report it had nothing to do.
var ErrStageSkipped = errors.New("stage skipped")

type stageFunc struct {
	id  string
	run func(ctx context.Context, a *Analysis) (int, error)
}

func (s stageFunc) ID() string { return s.id }

func (s stageFunc) Run(ctx context.Context, a *Analysis) (int, error) { return s.run(ctx, a) }

// NewStage wraps a function as a Stage.
func NewStage(id string, run func(ctx context.Context, a *Analysis) (int, error)) Stage {
	return stageFunc{id: id, run: run}
}

// Stage ids, in run order.
const (
	StageDerive    = "derive"
	StageDetect    = "detect"
	StageAggregate = "aggregate"
	StageAnomalies = "anomalies"
	StageTrend     = "trend"
	StageDORA      = "dora"
	StageRecommend = "recommend"
)

// Stages builds the standard analysis stages for opts.
func Stages(opts Options, log zerolog.Logger) []Stage {
	return []Stage{
		NewStage(StageDerive, func(_ context.Context, a *Analysis) (int, error) {
			return derive(a, opts.SkipMalformed, log)
		}),
		NewStage(StageDetect, func(_ context.Context, a *Analysis) (int, error) {
			var anomaly *detect.AnomalyDetector
			if opts.Anomaly {
				anomaly = detect.NewAnomalyDetector(opts.Forest)
			}
			res, err := detect.NewDetector(opts.Policy, anomaly).Detect(a.Records)
			if err != nil {
				return 0, err
			}
			for _, s := range res.Skipped {
				log.Warn().Str("ticket_id", s.TicketID).Str("reason", string(s.Reason)).Str("field", s.Field).Msg("record not scored by anomaly model")
			}
			a.Detection = res
			return a.Flagged(), nil
		}),
		NewStage(StageAggregate, func(_ context.Context, a *Analysis) (int, error) {
			a.Aggregate = detect.Aggregate(a.Detection.Reports)
			return a.Aggregate.Pairs(), nil
		}),
		NewStage(StageAnomalies, func(_ context.Context, a *Analysis) (int, error) {
			if !opts.Anomaly {
				return 0, ErrStageSkipped
			}
			obs := make([]detect.Observation, len(a.Records))
			for i, m := range a.Records {
				obs[i] = detect.ObservationOf(m)
			}
			rep, err := detect.NewNarrowAnomalyDetector(opts.Forest).Report(obs)
			if err != nil {
				return 0, err
			}
			a.Anomalies = rep
			return len(rep.Anomalies), nil
		}),
		NewStage(StageTrend, func(_ context.Context, a *Analysis) (int, error) {
			a.Warnings = opts.Trend.Analyze(a.Records)
			return len(a.Warnings), nil
		}),
		NewStage(StageDORA, func(_ context.Context, a *Analysis) (int, error) {
			a.DORA, a.HasDORA = metrics.ComputeDORA(a.Valid)
			if !a.HasDORA {
				return 0, ErrStageSkipped
			}
			return len(a.Valid), nil
		}),
		NewStage(StageRecommend, func(_ context.Context, a *Analysis) (int, error) {
			return recommendAll(a, opts), nil
		}),
	}
}

// derive turns tasks into metric records. Without skipMalformed the first
// malformed task fails the stage; with it, malformed tasks are logged and
// left out of every later stage, DORA included.
func derive(a *Analysis, skipMalformed bool, log zerolog.Logger) (int, error) {
	a.Malformed = nil
	if !skipMalformed {
		records, err := metrics.DeriveAll(a.Tasks)
		if err != nil {
			return 0, err
		}
		a.Valid = a.Tasks
		a.Records = records
		return len(records), nil
	}

	a.Valid = make([]delivery.TaskRecord, 0, len(a.Tasks))
	a.Records = make([]metrics.MetricRecord, 0, len(a.Tasks))
	for i, t := range a.Tasks {
		m, err := metrics.Derive(t)
		if err != nil {
			err = fmt.Errorf("task %d: %w", i, err)
			log.Warn().Err(err).Msg("skipping malformed task")
			a.Malformed = append(a.Malformed, err)
			continue
		}
		a.Valid = append(a.Valid, t)
		a.Records = append(a.Records, m)
	}
	return len(a.Records), nil
}

func recommendAll(a *Analysis, opts Options) int {
	var flagged []detect.BottleneckReport
	for _, r := range a.Detection.Reports {
		if r.Flagged() {
			flagged = append(flagged, r)
		}
	}
	a.Advice = recommend.NewStageMapper(opts.StageAdvice).AdviseAll(flagged)

	recs := recommend.NewSLAMapper(opts.SLA.Rules()).EvaluateAll(a.Records)
	recs = append(recs, recommend.FromTrends(a.Warnings)...)
	if a.HasDORA {
		recs = append(recs, opts.DORA.Evaluate(a.DORA)...)
	}
	recommend.SortBySeverity(recs)
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	a.Recommendations = recs
	return len(recs)
}
