// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package config loads analysis settings from defaults, an optional YAML
// file and CADENCE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/iforest"
	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/recommend"
	"github.com/bartekus/cadence/internal/trend"
)

// EnvPrefix prefixes every environment override, e.g. CADENCE_DETECTION_POLICY.
const EnvPrefix = "CADENCE"

// DefaultFileName is looked up in the working directory when no file is given.
const DefaultFileName = "cadence"

// Config is the full analysis configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Detection DetectionConfig `mapstructure:"detection"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Trend     TrendConfig     `mapstructure:"trend"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is console or json.
	Format string `mapstructure:"format"`
}

// DetectionConfig selects the heuristic threshold policy.
type DetectionConfig struct {
	Policy     string  `mapstructure:"policy"`
	Percentile float64 `mapstructure:"percentile"`
	K          float64 `mapstructure:"k"`
}

// AnomalyConfig configures the multivariate isolation forest.
type AnomalyConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Contamination float64 `mapstructure:"contamination"`
	Seed          uint64  `mapstructure:"seed"`
	Trees         int     `mapstructure:"trees"`
	MaxSamples    int     `mapstructure:"max_samples"`
}

// TrendConfig configures the sprint regression analyzer.
type TrendConfig struct {
	Metrics         []string `mapstructure:"metrics"`
	RegressionRatio float64  `mapstructure:"regression_ratio"`
	MinHistory      int      `mapstructure:"min_history"`
}

// RecommendConfig holds the SLA limits and DORA targets.
type RecommendConfig struct {
	SLA  SLAConfig  `mapstructure:"sla"`
	DORA DORAConfig `mapstructure:"dora"`
}

// SLAConfig holds per-task limits. Values accept Go duration strings.
type SLAConfig struct {
	PRReview  time.Duration `mapstructure:"pr_review"`
	LeadTime  time.Duration `mapstructure:"lead_time"`
	DeployLag time.Duration `mapstructure:"deploy_lag"`
	Build     time.Duration `mapstructure:"build"`
	CycleTime time.Duration `mapstructure:"cycle_time"`
}

// DORAConfig holds batch-level delivery targets.
type DORAConfig struct {
	MinDeploymentsPerDay    float64 `mapstructure:"min_deployments_per_day"`
	MaxLeadTimeHours        float64 `mapstructure:"max_lead_time_hours"`
	MaxRestoreHours         float64 `mapstructure:"max_restore_hours"`
	MaxChangeFailurePercent float64 `mapstructure:"max_change_failure_percent"`
}

// PipelineConfig controls the stage runner.
type PipelineConfig struct {
	// SkipMalformed drops malformed tasks with a warning instead of failing.
	SkipMalformed bool   `mapstructure:"skip_malformed"`
	StateDir      string `mapstructure:"state_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	forest := iforest.DefaultOptions()
	sla := recommend.DefaultSLALimits()
	dora := recommend.DefaultDORATargets()

	var trendMetrics []string
	for _, f := range trend.DefaultMetrics() {
		trendMetrics = append(trendMetrics, string(f))
	}

	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Detection: DetectionConfig{
			Policy:     string(detect.PolicyPercentile),
			Percentile: 80,
			K:          1,
		},
		Anomaly: AnomalyConfig{
			Enabled:       true,
			Contamination: forest.Contamination,
			Seed:          forest.Seed,
			Trees:         forest.Trees,
			MaxSamples:    forest.MaxSamples,
		},
		Trend: TrendConfig{
			Metrics:         trendMetrics,
			RegressionRatio: trend.DefaultRegressionRatio,
			MinHistory:      trend.DefaultMinHistory,
		},
		Recommend: RecommendConfig{
			SLA: SLAConfig{
				PRReview:  sla.PRReview,
				LeadTime:  sla.LeadTime,
				DeployLag: sla.DeployLag,
				Build:     sla.Build,
				CycleTime: sla.CycleTime,
			},
			DORA: DORAConfig{
				MinDeploymentsPerDay:    dora.MinDeploymentsPerDay,
				MaxLeadTimeHours:        dora.MaxLeadTimeHours,
				MaxRestoreHours:         dora.MaxRestoreHours,
				MaxChangeFailurePercent: dora.MaxChangeFailurePercent,
			},
		},
		Pipeline: PipelineConfig{
			SkipMalformed: false,
			StateDir:      ".cadence/run",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("detection.policy", d.Detection.Policy)
	v.SetDefault("detection.percentile", d.Detection.Percentile)
	v.SetDefault("detection.k", d.Detection.K)

	v.SetDefault("anomaly.enabled", d.Anomaly.Enabled)
	v.SetDefault("anomaly.contamination", d.Anomaly.Contamination)
	v.SetDefault("anomaly.seed", d.Anomaly.Seed)
	v.SetDefault("anomaly.trees", d.Anomaly.Trees)
	v.SetDefault("anomaly.max_samples", d.Anomaly.MaxSamples)

	v.SetDefault("trend.metrics", d.Trend.Metrics)
	v.SetDefault("trend.regression_ratio", d.Trend.RegressionRatio)
	v.SetDefault("trend.min_history", d.Trend.MinHistory)

	v.SetDefault("recommend.sla.pr_review", d.Recommend.SLA.PRReview)
	v.SetDefault("recommend.sla.lead_time", d.Recommend.SLA.LeadTime)
	v.SetDefault("recommend.sla.deploy_lag", d.Recommend.SLA.DeployLag)
	v.SetDefault("recommend.sla.build", d.Recommend.SLA.Build)
	v.SetDefault("recommend.sla.cycle_time", d.Recommend.SLA.CycleTime)

	v.SetDefault("recommend.dora.min_deployments_per_day", d.Recommend.DORA.MinDeploymentsPerDay)
	v.SetDefault("recommend.dora.max_lead_time_hours", d.Recommend.DORA.MaxLeadTimeHours)
	v.SetDefault("recommend.dora.max_restore_hours", d.Recommend.DORA.MaxRestoreHours)
	v.SetDefault("recommend.dora.max_change_failure_percent", d.Recommend.DORA.MaxChangeFailurePercent)

	v.SetDefault("pipeline.skip_malformed", d.Pipeline.SkipMalformed)
	v.SetDefault("pipeline.state_dir", d.Pipeline.StateDir)
}

// Load builds the configuration. An explicit path must exist; with an empty
// path, cadence.yaml in dir is read when present. The result is validated.
func Load(path, dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// ThresholdPolicy builds the configured heuristic policy.
func (c *Config) ThresholdPolicy() (detect.ThresholdPolicy, error) {
	return detect.NewPolicy(detect.Policy(c.Detection.Policy), c.Detection.Percentile, c.Detection.K)
}

// ForestOptions returns the isolation forest options.
func (c *Config) ForestOptions() iforest.Options {
	return iforest.Options{
		Trees:         c.Anomaly.Trees,
		Contamination: c.Anomaly.Contamination,
		MaxSamples:    c.Anomaly.MaxSamples,
		Seed:          c.Anomaly.Seed,
	}
}

// TrendAnalyzer returns an analyzer over the configured metrics. Metric names
// are checked by Validate.
func (c *Config) TrendAnalyzer() *trend.Analyzer {
	fields := make([]metrics.Field, 0, len(c.Trend.Metrics))
	for _, name := range c.Trend.Metrics {
		if f, err := metrics.ParseField(name); err == nil {
			fields = append(fields, f)
		}
	}
	return &trend.Analyzer{
		Metrics:         fields,
		RegressionRatio: c.Trend.RegressionRatio,
		MinHistory:      c.Trend.MinHistory,
	}
}

// SLALimits returns the configured per-task limits.
func (c *Config) SLALimits() recommend.SLALimits {
	return recommend.SLALimits(c.Recommend.SLA)
}

// DORATargets returns the configured batch targets.
func (c *Config) DORATargets() recommend.DORATargets {
	return recommend.DORATargets(c.Recommend.DORA)
}
