// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"github.com/bartekus/cadence/internal/metrics"
)

// MarkerMultivariate is the stage recorded for tasks flagged only by the
// anomaly model.
const MarkerMultivariate = "multivariate_anomaly"

// BottleneckReport is the detector verdict for one task.
type BottleneckReport struct {
	TicketID  string `json:"ticket_id" yaml:"ticket_id"`
	Developer string `json:"developer" yaml:"developer"`
	Team      string `json:"team" yaml:"team"`
	// Stages lists the exceeded fields in canonical order, followed by
	// MarkerMultivariate when only the anomaly model fired.
	Stages        []string `json:"stages" yaml:"stages"`
	HeuristicFlag bool     `json:"heuristic_flag" yaml:"heuristic_flag"`
	AnomalyFlag   bool     `json:"anomaly_flag" yaml:"anomaly_flag"`
}

// Flagged reports whether either detector fired.
func (r BottleneckReport) Flagged() bool {
	return r.HeuristicFlag || r.AnomalyFlag
}

// Result is the detector output for a batch.
type Result struct {
	Reports    []BottleneckReport
	Thresholds Thresholds
	// Skipped lists records the anomaly model could not score.
	Skipped []Skip
}

// Detector combines a threshold policy with an optional anomaly model.
type Detector struct {
	policy  ThresholdPolicy
	anomaly *AnomalyDetector
}

// NewDetector returns a detector. A nil anomaly detector disables the
// multivariate pass.
func NewDetector(policy ThresholdPolicy, anomaly *AnomalyDetector) *Detector {
	return &Detector{policy: policy, anomaly: anomaly}
}

// Detect computes batch thresholds, fits the anomaly model once, and then
// classifies every record. Reports are returned in input order.
func (d *Detector) Detect(records []metrics.MetricRecord) (Result, error) {
	res := Result{
		Reports:    make([]BottleneckReport, len(records)),
		Thresholds: ComputeThresholds(records, d.policy),
	}

	var labels Labels
	if d.anomaly != nil && len(records) > 0 {
		obs := make([]Observation, len(records))
		for i, m := range records {
			obs[i] = ObservationOf(m)
		}
		var err error
		labels, err = d.anomaly.Label(obs)
		if err != nil {
			return Result{}, err
		}
		res.Skipped = labels.Skipped
	}

	for i, m := range records {
		stages := res.Thresholds.Exceeded(m)
		r := BottleneckReport{
			TicketID:      m.TicketID,
			Developer:     m.Developer,
			Team:          m.Team,
			Stages:        append([]string{}, stages...),
			HeuristicFlag: len(stages) > 0,
		}
		if labels.Outliers != nil && labels.Outliers[i] {
			r.AnomalyFlag = true
			if !r.HeuristicFlag {
				r.Stages = append(r.Stages, MarkerMultivariate)
			}
		}
		res.Reports[i] = r
	}
	return res, nil
}
