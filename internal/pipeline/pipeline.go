// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package pipeline runs the analysis stages in order over one batch of tasks
// and records the outcome of each stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bartekus/cadence/internal/config"
	"github.com/bartekus/cadence/internal/delivery"
	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/iforest"
	"github.com/bartekus/cadence/internal/recommend"
	"github.com/bartekus/cadence/internal/trend"
)

// Options configures the standard stages.
type Options struct {
	Policy        detect.ThresholdPolicy
	Anomaly       bool
	Forest        iforest.Options
	Trend         *trend.Analyzer
	StageAdvice   map[string][]string
	SLA           recommend.SLALimits
	DORA          recommend.DORATargets
	SkipMalformed bool
}

// OptionsFrom maps a validated configuration to stage options.
func OptionsFrom(cfg *config.Config) (Options, error) {
	policy, err := cfg.ThresholdPolicy()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Policy:        policy,
		Anomaly:       cfg.Anomaly.Enabled,
		Forest:        cfg.ForestOptions(),
		Trend:         cfg.TrendAnalyzer(),
		StageAdvice:   recommend.DefaultStageAdvice(),
		SLA:           cfg.SLALimits(),
		DORA:          cfg.DORATargets(),
		SkipMalformed: cfg.Pipeline.SkipMalformed,
	}, nil
}

// Pipeline executes stages in order. A failed stage stops the run; the
// stages after it are recorded as skipped.
type Pipeline struct {
	stages []Stage
	store  *StateStore
	log    zerolog.Logger
	now    func() time.Time
}

// New returns a pipeline over stages. A nil store disables persistence.
func New(stages []Stage, store *StateStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{stages: stages, store: store, log: log, now: time.Now}
}

// Run executes every stage over tasks. The returned analysis holds whatever
// the completed stages produced, even when err is non-nil. Cancelling ctx
// stops the run before the next stage.
func (p *Pipeline) Run(ctx context.Context, tasks []delivery.TaskRecord) (*Analysis, *LastRun, error) {
	a := &Analysis{Tasks: tasks}
	last := &LastRun{
		Status:    "pass",
		StartedAt: p.now().UTC(),
		Stages:    make([]StageResult, 0, len(p.stages)),
		Failed:    []string{},
		Tasks:     len(tasks),
	}

	var runErr error
	for _, stage := range p.stages {
		id := stage.ID()
		if runErr == nil {
			runErr = ctx.Err()
		}
		if runErr != nil {
			last.Stages = append(last.Stages, StageResult{Stage: id, Status: StatusSkip, Note: "not run"})
			continue
		}

		p.log.Debug().Str("stage", id).Msg("stage started")
		start := p.now()
		n, err := stage.Run(ctx, a)
		res := StageResult{Stage: id, Status: StatusPass, Count: n, ElapsedMS: p.now().Sub(start).Milliseconds()}

		switch {
		case errors.Is(err, ErrStageSkipped):
			res.Status = StatusSkip
			p.log.Info().Str("stage", id).Msg("stage skipped")
		case err != nil:
			res.Status = StatusFail
			res.Note = err.Error()
			last.Failed = append(last.Failed, id)
			runErr = fmt.Errorf("stage %s: %w", id, err)
			p.log.Error().Str("stage", id).Err(err).Msg("stage failed")
		default:
			p.log.Info().Str("stage", id).Int("count", n).Int64("elapsed_ms", res.ElapsedMS).Msg("stage finished")
		}
		last.Stages = append(last.Stages, res)
	}

	if runErr != nil {
		last.Status = "fail"
	}
	summarize(last, a)

	if p.store != nil {
		if err := p.store.WriteLastRun(*last); err != nil {
			return a, last, errors.Join(runErr, fmt.Errorf("writing last run: %w", err))
		}
	}
	return a, last, runErr
}

// Persist rewrites the stored summary, e.g. after the caller adds the output
// directory.
func (p *Pipeline) Persist(last *LastRun) error {
	if p.store == nil || last == nil {
		return nil
	}
	return p.store.WriteLastRun(*last)
}

func summarize(last *LastRun, a *Analysis) {
	last.Malformed = len(a.Malformed)
	last.Flagged = a.Flagged()
	last.Anomalies = len(a.Anomalies.Anomalies)
	last.Warnings = len(a.Warnings)
	last.Advice = len(a.Advice)
	last.Recommendations = len(a.Recommendations)
	if a.HasDORA {
		d := a.DORA
		last.DORA = &d
	}
}
