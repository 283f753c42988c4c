// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"fmt"
	"math"

	"github.com/bartekus/cadence/internal/iforest"
	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/stats"
)

// AnomalyIssue is the issue text attached to standalone anomaly findings.
const AnomalyIssue = "Anomalous task behavior detected"

// NarrowFields is the feature vector of the standalone anomaly report.
func NarrowFields() []metrics.Field {
	return []metrics.Field{
		metrics.PRReviewTime,
		metrics.CycleTime,
		metrics.LeadTime,
		metrics.BuildTime,
	}
}

// Observation is one task's feature values keyed by metric field, in seconds.
// Values may be incomplete when observations come from partial sources.
type Observation struct {
	TicketID  string
	Developer string
	Team      string
	Values    map[metrics.Field]float64
}

// ObservationOf converts a metric record into a complete observation.
func ObservationOf(m metrics.MetricRecord) Observation {
	values := make(map[metrics.Field]float64, len(metrics.Fields()))
	for _, f := range metrics.Fields() {
		values[f] = m.Seconds(f)
	}
	return Observation{
		TicketID:  m.TicketID,
		Developer: m.Developer,
		Team:      m.Team,
		Values:    values,
	}
}

// SkipReason explains why an observation was left out of anomaly scoring.
type SkipReason string

const (
	SkipMissingField SkipReason = "missing_field"
	SkipInvalidValue SkipReason = "invalid_value"
)

// Skip records one observation left out of anomaly scoring.
type Skip struct {
	TicketID string     `json:"ticket_id" yaml:"ticket_id"`
	Reason   SkipReason `json:"reason" yaml:"reason"`
	Field    string     `json:"field" yaml:"field"`
}

// Labels are anomaly labels aligned with the scored observations. Skipped
// observations are never outliers.
type Labels struct {
	Outliers []bool
	Scores   []float64
	Skipped  []Skip
}

// AnomalyDetector scores observations jointly over a fixed feature vector
// with an isolation forest.
type AnomalyDetector struct {
	fields      []metrics.Field
	opts        iforest.Options
	standardize bool
}

// NewAnomalyDetector scores all eight metric fields after z-score
// standardization.
func NewAnomalyDetector(opts iforest.Options) *AnomalyDetector {
	return &AnomalyDetector{fields: metrics.Fields(), opts: opts, standardize: true}
}

// NewNarrowAnomalyDetector scores the four NarrowFields on raw seconds.
func NewNarrowAnomalyDetector(opts iforest.Options) *AnomalyDetector {
	return &AnomalyDetector{fields: NarrowFields(), opts: opts}
}

// Fields returns the feature vector in column order.
func (d *AnomalyDetector) Fields() []metrics.Field {
	return d.fields
}

// Label fits the forest once over every usable observation and labels the
// batch. Observations missing a field, or carrying a negative or non-finite
// value, are skipped with a reason instead of failing the batch.
func (d *AnomalyDetector) Label(obs []Observation) (Labels, error) {
	labels := Labels{
		Outliers: make([]bool, len(obs)),
		Scores:   make([]float64, len(obs)),
	}

	rows := make([][]float64, 0, len(obs))
	index := make([]int, 0, len(obs))
	for i, o := range obs {
		row, skip := d.vector(o)
		if skip != nil {
			labels.Skipped = append(labels.Skipped, *skip)
			continue
		}
		rows = append(rows, row)
		index = append(index, i)
	}

	if d.standardize {
		stats.Standardize(rows)
	}

	res, err := iforest.FitPredict(rows, d.opts)
	if err != nil {
		return Labels{}, fmt.Errorf("scoring anomalies: %w", err)
	}
	for j, i := range index {
		labels.Outliers[i] = res.Outliers[j]
		labels.Scores[i] = res.Scores[j]
	}
	return labels, nil
}

func (d *AnomalyDetector) vector(o Observation) ([]float64, *Skip) {
	row := make([]float64, len(d.fields))
	for j, f := range d.fields {
		v, ok := o.Values[f]
		if !ok {
			return nil, &Skip{TicketID: o.TicketID, Reason: SkipMissingField, Field: string(f)}
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &Skip{TicketID: o.TicketID, Reason: SkipInvalidValue, Field: string(f)}
		}
		row[j] = v
	}
	return row, nil
}

// Anomaly is one outlier from the standalone anomaly report.
type Anomaly struct {
	TicketID  string             `json:"ticket_id" yaml:"ticket_id"`
	Developer string             `json:"developer" yaml:"developer"`
	Team      string             `json:"team" yaml:"team"`
	Values    map[string]float64 `json:"values" yaml:"values"`
	Score     float64            `json:"score" yaml:"score"`
	Issue     string             `json:"issue" yaml:"issue"`
}

// AnomalyReport is the standalone anomaly-only output.
type AnomalyReport struct {
	Anomalies []Anomaly `json:"anomalies" yaml:"anomalies"`
	Skipped   []Skip    `json:"skipped" yaml:"skipped"`
}

// Report labels obs and returns only the outliers, in input order, with
// feature values rounded to two decimals.
func (d *AnomalyDetector) Report(obs []Observation) (AnomalyReport, error) {
	labels, err := d.Label(obs)
	if err != nil {
		return AnomalyReport{}, err
	}

	out := AnomalyReport{Anomalies: []Anomaly{}, Skipped: labels.Skipped}
	if out.Skipped == nil {
		out.Skipped = []Skip{}
	}
	for i, o := range obs {
		if !labels.Outliers[i] {
			continue
		}
		values := make(map[string]float64, len(d.fields))
		for _, f := range d.fields {
			values[string(f)] = math.Round(o.Values[f]*100) / 100
		}
		out.Anomalies = append(out.Anomalies, Anomaly{
			TicketID:  o.TicketID,
			Developer: o.Developer,
			Team:      o.Team,
			Values:    values,
			Score:     math.Round(labels.Scores[i]*10000) / 10000,
			Issue:     AnomalyIssue,
		})
	}
	return out, nil
}
