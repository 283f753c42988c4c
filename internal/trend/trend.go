// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package trend detects per-developer metric regressions across sprints.
package trend

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/bartekus/cadence/internal/metrics"
)

// Defaults for the analyzer.
const (
	DefaultRegressionRatio = 1.2
	DefaultMinHistory      = 3
)

// DefaultMetrics are the tracked metric fields.
func DefaultMetrics() []metrics.Field {
	return []metrics.Field{metrics.PRReviewTime, metrics.CycleTime, metrics.LeadTime}
}

// Warning reports a developer whose latest sprint value regressed.
// Values are in seconds, rounded to two decimals.
type Warning struct {
	Developer       string  `json:"developer" yaml:"developer"`
	MetricName      string  `json:"metric_name" yaml:"metric_name"`
	Sprint          int     `json:"sprint" yaml:"sprint"`
	PreviousAverage float64 `json:"previous_average" yaml:"previous_average"`
	CurrentValue    float64 `json:"current_value" yaml:"current_value"`
	Message         string  `json:"message" yaml:"message"`
}

// Analyzer compares each developer's latest sample of a metric with the
// average of the earlier samples.
type Analyzer struct {
	Metrics []metrics.Field
	// RegressionRatio is the multiple of the previous average the latest value
	// must exceed.
	RegressionRatio float64
	// MinHistory is the minimum number of samples per developer and metric.
	MinHistory int
}

// NewAnalyzer returns an analyzer with the default metrics, ratio and history.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Metrics:         DefaultMetrics(),
		RegressionRatio: DefaultRegressionRatio,
		MinHistory:      DefaultMinHistory,
	}
}

type sample struct {
	sprint int
	value  float64
}

type groupKey struct {
	developer string
	metric    metrics.Field
}

// Analyze groups records by developer and metric. Each record is one sample
// at its sprint; records sharing a sprint are not averaged. Samples are
// ordered by sprint then value, the last one is the current value and the
// rest form the previous average. Groups with too little history or a zero
// baseline produce nothing.
//
// Warnings are ordered by developer, then by the analyzer's metric order.
func (a *Analyzer) Analyze(records []metrics.MetricRecord) []Warning {
	groups := make(map[groupKey][]sample)
	var developers []string
	seen := make(map[string]bool)

	for _, m := range records {
		if !seen[m.Developer] {
			seen[m.Developer] = true
			developers = append(developers, m.Developer)
		}
		for _, f := range a.Metrics {
			k := groupKey{developer: m.Developer, metric: f}
			groups[k] = append(groups[k], sample{sprint: m.Sprint, value: m.Seconds(f)})
		}
	}
	slices.Sort(developers)

	minHistory := max(a.MinHistory, 2)
	var out []Warning
	for _, dev := range developers {
		for _, f := range a.Metrics {
			samples := groups[groupKey{developer: dev, metric: f}]
			if len(samples) < minHistory {
				continue
			}
			if w, ok := a.compare(dev, f, samples); ok {
				out = append(out, w)
			}
		}
	}
	return out
}

func (a *Analyzer) compare(dev string, f metrics.Field, samples []sample) (Warning, bool) {
	slices.SortFunc(samples, func(x, y sample) int {
		if c := cmp.Compare(x.sprint, y.sprint); c != 0 {
			return c
		}
		return cmp.Compare(x.value, y.value)
	})

	last := samples[len(samples)-1]
	var sum float64
	for _, s := range samples[:len(samples)-1] {
		sum += s.value
	}
	prev := sum / float64(len(samples)-1)
	if prev == 0 {
		return Warning{}, false
	}
	if last.value <= a.RegressionRatio*prev {
		return Warning{}, false
	}

	return Warning{
		Developer:       dev,
		MetricName:      string(f),
		Sprint:          last.sprint,
		PreviousAverage: round2(prev),
		CurrentValue:    round2(last.value),
		Message: fmt.Sprintf("%s increased by over %.0f%% in sprint %d",
			f, (a.RegressionRatio-1)*100, last.sprint),
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
