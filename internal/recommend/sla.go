// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"fmt"
	"time"

	"github.com/bartekus/cadence/internal/metrics"
)

// SLARule fires when a task's field is strictly above Limit. Limits are
// absolute, independent of the batch.
type SLARule struct {
	Field    metrics.Field
	Limit    time.Duration
	Severity Severity
	Category string
	// Advice is appended to the generated message.
	Advice string
}

// SLALimits holds the configurable limits of the default rules.
type SLALimits struct {
	PRReview  time.Duration
	LeadTime  time.Duration
	DeployLag time.Duration
	Build     time.Duration
	CycleTime time.Duration
}

// DefaultSLALimits returns the organizational defaults.
func DefaultSLALimits() SLALimits {
	return SLALimits{
		PRReview:  36 * time.Hour,
		LeadTime:  5 * 24 * time.Hour,
		DeployLag: 2 * time.Hour,
		Build:     1800 * time.Second,
		CycleTime: 4 * 24 * time.Hour,
	}
}

// Rules returns the SLA rules for these limits.
func (l SLALimits) Rules() []SLARule {
	return []SLARule{
		{
			Field: metrics.PRReviewTime, Limit: l.PRReview,
			Severity: SeverityHigh, Category: "Code Review",
			Advice: "Rotate reviewers or set a review response target.",
		},
		{
			Field: metrics.LeadTime, Limit: l.LeadTime,
			Severity: SeverityHigh, Category: "Process",
			Advice: "Split the work into smaller tickets and revisit backlog prioritization.",
		},
		{
			Field: metrics.DeployLag, Limit: l.DeployLag,
			Severity: SeverityMedium, Category: "Deployment",
			Advice: "Deploy automatically after merge instead of batching releases.",
		},
		{
			Field: metrics.BuildTime, Limit: l.Build,
			Severity: SeverityMedium, Category: "CI/CD",
			Advice: "Cache dependencies and parallelize slow pipeline stages.",
		},
		{
			Field: metrics.CycleTime, Limit: l.CycleTime,
			Severity: SeverityHigh, Category: "Development",
			Advice: "Check for blocked work and limit work in progress.",
		},
	}
}

// SLAMapper evaluates SLA rules against individual metric records.
type SLAMapper struct {
	rules []SLARule
}

// NewSLAMapper returns a mapper over rules, evaluated in the given order.
func NewSLAMapper(rules []SLARule) *SLAMapper {
	return &SLAMapper{rules: append([]SLARule(nil), rules...)}
}

// Evaluate returns one recommendation per rule m violates.
func (s *SLAMapper) Evaluate(m metrics.MetricRecord) []Recommendation {
	var out []Recommendation
	for _, r := range s.rules {
		d, ok := m.Duration(r.Field)
		if !ok || d <= r.Limit {
			continue
		}
		out = append(out, Recommendation{
			Category:  r.Category,
			Severity:  r.Severity,
			Message:   fmt.Sprintf("%s of %s exceeds the %s limit. %s", r.Field, formatDuration(d), formatDuration(r.Limit), r.Advice),
			TicketID:  m.TicketID,
			Developer: m.Developer,
			Team:      m.Team,
		})
	}
	return out
}

// EvaluateAll evaluates every record in order.
func (s *SLAMapper) EvaluateAll(records []metrics.MetricRecord) []Recommendation {
	var out []Recommendation
	for _, m := range records {
		out = append(out, s.Evaluate(m)...)
	}
	return out
}

// formatDuration prints hours with one decimal, or seconds under a minute.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
