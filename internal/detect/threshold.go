// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package detect flags bottleneck tasks in a batch of metric records using
// batch-relative thresholds and a multivariate outlier model, and rolls the
// flags up into summary counts.
package detect

import (
	"fmt"

	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/stats"
)

// Policy names a threshold policy.
type Policy string

const (
	PolicyPercentile Policy = "percentile"
	PolicyDispersion Policy = "dispersion"
)

// ThresholdPolicy derives one field's threshold from all of the batch's
// values for that field. A task is flagged on the field when its value is
// strictly greater than the threshold.
type ThresholdPolicy interface {
	Name() Policy
	Threshold(values []float64) float64
}

// PercentileThreshold uses the P-th percentile of the batch.
type PercentileThreshold struct {
	P float64
}

func (p PercentileThreshold) Name() Policy { return PolicyPercentile }

func (p PercentileThreshold) Threshold(values []float64) float64 {
	if stats.Constant(values) {
		return constantThreshold(values)
	}
	return stats.Percentile(values, p.P)
}

// DispersionThreshold uses mean + K standard deviations of the batch.
type DispersionThreshold struct {
	K float64
}

func (d DispersionThreshold) Name() Policy { return PolicyDispersion }

func (d DispersionThreshold) Threshold(values []float64) float64 {
	if stats.Constant(values) {
		return constantThreshold(values)
	}
	mean, std := stats.MeanStdDev(values)
	return mean + d.K*std
}

// constantThreshold pins the threshold to the shared value so floating point
// drift in a computed mean can never flag a constant field.
func constantThreshold(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}

// NewPolicy builds the named policy. percentile is used by the percentile
// policy and k by the dispersion policy.
func NewPolicy(name Policy, percentile, k float64) (ThresholdPolicy, error) {
	switch name {
	case PolicyPercentile:
		if percentile <= 0 || percentile > 100 {
			return nil, fmt.Errorf("percentile must be in (0, 100], got %v", percentile)
		}
		return PercentileThreshold{P: percentile}, nil
	case PolicyDispersion:
		if k < 0 {
			return nil, fmt.Errorf("dispersion k must be non-negative, got %v", k)
		}
		return DispersionThreshold{K: k}, nil
	default:
		return nil, fmt.Errorf("unknown threshold policy %q", name)
	}
}

// Thresholds holds one threshold per metric field, in seconds.
type Thresholds map[metrics.Field]float64

// ComputeThresholds runs the policy once per field over the whole batch.
func ComputeThresholds(records []metrics.MetricRecord, policy ThresholdPolicy) Thresholds {
	th := make(Thresholds, len(metrics.Fields()))
	values := make([]float64, len(records))
	for _, f := range metrics.Fields() {
		for i, m := range records {
			values[i] = m.Seconds(f)
		}
		th[f] = policy.Threshold(values)
	}
	return th
}

// Exceeded lists every field on which m is above its threshold, in
// canonical field order.
func (th Thresholds) Exceeded(m metrics.MetricRecord) []string {
	var out []string
	for _, f := range metrics.Fields() {
		limit, ok := th[f]
		if !ok {
			continue
		}
		if m.Seconds(f) > limit {
			out = append(out, string(f))
		}
	}
	return out
}
