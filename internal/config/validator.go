// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/metrics"
)

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels lists the accepted log.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats lists the accepted log.format values.
func ValidLogFormats() []string {
	return []string{"console", "json"}
}

// Validate returns every invalid setting, or nil.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if !slices.Contains(ValidLogLevels(), c.Log.Level) {
		add("log.level", c.Log.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if !slices.Contains(ValidLogFormats(), c.Log.Format) {
		add("log.format", c.Log.Format, "must be console or json")
	}

	switch detect.Policy(c.Detection.Policy) {
	case detect.PolicyPercentile, detect.PolicyDispersion:
	default:
		add("detection.policy", c.Detection.Policy, "must be percentile or dispersion")
	}
	if c.Detection.Percentile <= 0 || c.Detection.Percentile > 100 {
		add("detection.percentile", c.Detection.Percentile, "must be in (0, 100]")
	}
	if c.Detection.K < 0 {
		add("detection.k", c.Detection.K, "must not be negative")
	}

	if c.Anomaly.Contamination <= 0 || c.Anomaly.Contamination > 0.5 {
		add("anomaly.contamination", c.Anomaly.Contamination, "must be in (0, 0.5]")
	}
	if c.Anomaly.Trees < 1 {
		add("anomaly.trees", c.Anomaly.Trees, "must be at least 1")
	}
	if c.Anomaly.MaxSamples < 1 {
		add("anomaly.max_samples", c.Anomaly.MaxSamples, "must be at least 1")
	}

	if len(c.Trend.Metrics) == 0 {
		add("trend.metrics", c.Trend.Metrics, "must name at least one metric")
	}
	for _, name := range c.Trend.Metrics {
		if _, err := metrics.ParseField(name); err != nil {
			add("trend.metrics", name, "unknown metric")
		}
	}
	if c.Trend.RegressionRatio <= 1 {
		add("trend.regression_ratio", c.Trend.RegressionRatio, "must be greater than 1")
	}
	if c.Trend.MinHistory < 2 {
		add("trend.min_history", c.Trend.MinHistory, "must be at least 2")
	}

	sla := []struct {
		key   string
		value any
		ok    bool
	}{
		{"recommend.sla.pr_review", c.Recommend.SLA.PRReview, c.Recommend.SLA.PRReview > 0},
		{"recommend.sla.lead_time", c.Recommend.SLA.LeadTime, c.Recommend.SLA.LeadTime > 0},
		{"recommend.sla.deploy_lag", c.Recommend.SLA.DeployLag, c.Recommend.SLA.DeployLag > 0},
		{"recommend.sla.build", c.Recommend.SLA.Build, c.Recommend.SLA.Build > 0},
		{"recommend.sla.cycle_time", c.Recommend.SLA.CycleTime, c.Recommend.SLA.CycleTime > 0},
	}
	for _, s := range sla {
		if !s.ok {
			add(s.key, s.value, "must be positive")
		}
	}

	d := c.Recommend.DORA
	if d.MinDeploymentsPerDay < 0 {
		add("recommend.dora.min_deployments_per_day", d.MinDeploymentsPerDay, "must not be negative")
	}
	if d.MaxLeadTimeHours <= 0 {
		add("recommend.dora.max_lead_time_hours", d.MaxLeadTimeHours, "must be positive")
	}
	if d.MaxRestoreHours <= 0 {
		add("recommend.dora.max_restore_hours", d.MaxRestoreHours, "must be positive")
	}
	if d.MaxChangeFailurePercent < 0 || d.MaxChangeFailurePercent > 100 {
		add("recommend.dora.max_change_failure_percent", d.MaxChangeFailurePercent, "must be in [0, 100]")
	}

	if strings.TrimSpace(c.Pipeline.StateDir) == "" {
		add("pipeline.state_dir", c.Pipeline.StateDir, "must not be empty")
	}
	return errs
}
