// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"math"

	"github.com/bartekus/cadence/internal/delivery"
)

// DORASummary holds the four delivery-performance indicators for a batch.
// Values are rounded to two decimals.
type DORASummary struct {
	DeploymentFrequencyPerDay float64 `json:"deployment_frequency_per_day" yaml:"deployment_frequency_per_day"`
	AverageLeadTimeHours      float64 `json:"average_lead_time_hours" yaml:"average_lead_time_hours"`
	ChangeFailureRatePercent  float64 `json:"change_failure_rate_percent" yaml:"change_failure_rate_percent"`
	MeanTimeToRestoreHours    float64 `json:"mean_time_to_restore_hours" yaml:"mean_time_to_restore_hours"`
}

// ComputeDORA summarizes a batch of tasks. It reports ok == false for an
// empty batch.
//
// Lead time here is lead time for changes (first commit to deploy), which is
// narrower than the per-task lead_time metric.
func ComputeDORA(tasks []delivery.TaskRecord) (DORASummary, bool) {
	if len(tasks) == 0 {
		return DORASummary{}, false
	}

	days := make(map[[3]int]struct{})
	var leadHours float64
	var failed int
	var restoreHours float64
	var restored int

	for _, t := range tasks {
		y, m, d := t.DeployedAt.Date()
		days[[3]int{y, int(m), d}] = struct{}{}

		leadHours += t.DeployedAt.Sub(t.FirstCommitAt).Hours()

		if t.DeploymentSuccess {
			continue
		}
		failed++
		if t.RestoreTime != nil {
			restoreHours += t.RestoreTime.Sub(t.DeployedAt).Hours()
			restored++
		}
	}

	n := float64(len(tasks))
	s := DORASummary{
		DeploymentFrequencyPerDay: round2(n / float64(len(days))),
		AverageLeadTimeHours:      round2(leadHours / n),
		ChangeFailureRatePercent:  round2(float64(failed) / n * 100),
	}
	if restored > 0 {
		s.MeanTimeToRestoreHours = round2(restoreHours / float64(restored))
	}
	return s, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
