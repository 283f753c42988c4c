// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"time"

	"github.com/bartekus/cadence/internal/delivery"
	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/recommend"
	"github.com/bartekus/cadence/internal/trend"
)

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StatusPass StageStatus = "pass"
	StatusFail StageStatus = "fail"
	StatusSkip StageStatus = "skip"
)

// StageResult records one stage of a run.
// Stored in <state-dir>/last-run.json.
type StageResult struct {
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	Count     int         `json:"count"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Note      string      `json:"note,omitempty"`
}

// LastRun summarizes the most recent pipeline run.
type LastRun struct {
	Status          string               `json:"status"` // "pass" or "fail"
	StartedAt       time.Time            `json:"started_at"`
	Stages          []StageResult        `json:"stages"`
	Failed          []string             `json:"failed"`
	Tasks           int                  `json:"tasks"`
	Malformed       int                  `json:"malformed"`
	Flagged         int                  `json:"flagged"`
	Anomalies       int                  `json:"anomalies"`
	Warnings        int                  `json:"warnings"`
	Advice          int                  `json:"advice"`
	Recommendations int                  `json:"recommendations"`
	DORA            *metrics.DORASummary `json:"dora,omitempty"`
	OutputDir       string               `json:"output_dir,omitempty"`
}

// Analysis is the state the stages build up, in stage order.
type Analysis struct {
	// Tasks is the input batch.
	Tasks []delivery.TaskRecord
	// Valid holds the tasks that derived cleanly, aligned with Records.
	Valid     []delivery.TaskRecord
	Records   []metrics.MetricRecord
	Malformed []error

	Detection detect.Result
	Aggregate detect.Summary
	Anomalies detect.AnomalyReport
	Warnings  []trend.Warning

	DORA    metrics.DORASummary
	HasDORA bool

	Advice          []recommend.TaskAdvice
	Recommendations []recommend.Recommendation
}

// Flagged counts the bottleneck reports either detector fired on.
func (a *Analysis) Flagged() int {
	n := 0
	for _, r := range a.Detection.Reports {
		if r.Flagged() {
			n++
		}
	}
	return n
}
