// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"fmt"

	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/trend"
)

// DORATargets are the delivery-performance targets a batch is held to.
type DORATargets struct {
	MinDeploymentsPerDay    float64
	MaxLeadTimeHours        float64
	MaxRestoreHours         float64
	MaxChangeFailurePercent float64
}

// DefaultDORATargets returns 1 deployment/day, 48h lead time, 4h restore and
// 20% change failure rate.
func DefaultDORATargets() DORATargets {
	return DORATargets{
		MinDeploymentsPerDay:    1,
		MaxLeadTimeHours:        48,
		MaxRestoreHours:         4,
		MaxChangeFailurePercent: 20,
	}
}

// Evaluate returns one High recommendation per violated target.
func (t DORATargets) Evaluate(s metrics.DORASummary) []Recommendation {
	var out []Recommendation
	if s.DeploymentFrequencyPerDay < t.MinDeploymentsPerDay {
		out = append(out, Recommendation{
			Category: "Deployment Frequency",
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Deployment frequency %.2f/day is below the %.2f/day target. Ship smaller changes more often and automate releases.",
				s.DeploymentFrequencyPerDay, t.MinDeploymentsPerDay),
		})
	}
	if s.AverageLeadTimeHours > t.MaxLeadTimeHours {
		out = append(out, Recommendation{
			Category: "Lead Time",
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Average lead time %.2fh exceeds the %.0fh target. Shorten review and deployment queues.",
				s.AverageLeadTimeHours, t.MaxLeadTimeHours),
		})
	}
	if s.MeanTimeToRestoreHours > t.MaxRestoreHours {
		out = append(out, Recommendation{
			Category: "Recovery",
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Mean time to restore %.2fh exceeds the %.0fh target. Invest in rollback automation and alerting.",
				s.MeanTimeToRestoreHours, t.MaxRestoreHours),
		})
	}
	if s.ChangeFailureRatePercent > t.MaxChangeFailurePercent {
		out = append(out, Recommendation{
			Category: "Change Failure",
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Change failure rate %.2f%% exceeds the %.0f%% target. Strengthen pre-merge testing and staged rollouts.",
				s.ChangeFailureRatePercent, t.MaxChangeFailurePercent),
		})
	}
	return out
}

// FromTrends maps regression warnings to developer-scoped recommendations.
func FromTrends(warnings []trend.Warning) []Recommendation {
	out := make([]Recommendation, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, Recommendation{
			Category:  "Trend",
			Severity:  SeverityMedium,
			Message:   fmt.Sprintf("%s for %s: %.0fs against a %.0fs average.", w.Message, w.Developer, w.CurrentValue, w.PreviousAverage),
			Developer: w.Developer,
		})
	}
	return out
}
