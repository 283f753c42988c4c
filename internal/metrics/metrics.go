// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package metrics derives per-task duration metrics and batch DORA figures
// from delivery task records.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/bartekus/cadence/internal/delivery"
)

// Field names one derived duration metric.
type Field string

const (
	LeadTime      Field = "lead_time"
	CycleTime     Field = "cycle_time"
	CodingTime    Field = "coding_time"
	TimeToPR      Field = "time_to_pr"
	PRReviewTime  Field = "pr_review_time"
	BuildTime     Field = "build_time"
	DeployLag     Field = "deploy_lag"
	TotalWorkTime Field = "total_work_time"
)

// Fields returns the eight metric fields in canonical order.
// Detector output lists flagged stages in this order.
func Fields() []Field {
	return []Field{
		LeadTime,
		CycleTime,
		CodingTime,
		TimeToPR,
		PRReviewTime,
		BuildTime,
		DeployLag,
		TotalWorkTime,
	}
}

// ParseField returns the Field for a metric name.
func ParseField(name string) (Field, error) {
	for _, f := range Fields() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown metric field %q", name)
}

// MetricRecord holds the derived durations for one task.
type MetricRecord struct {
	TicketID  string `json:"ticket_id" yaml:"ticket_id"`
	Developer string `json:"developer" yaml:"developer"`
	Team      string `json:"team" yaml:"team"`
	Sprint    int    `json:"sprint" yaml:"sprint"`

	FirstCommitAt time.Time `json:"first_commit_at" yaml:"first_commit_at"`
	DeployedAt    time.Time `json:"deployed_at" yaml:"deployed_at"`

	LeadTime      time.Duration `json:"lead_time" yaml:"lead_time"`
	CycleTime     time.Duration `json:"cycle_time" yaml:"cycle_time"`
	CodingTime    time.Duration `json:"coding_time" yaml:"coding_time"`
	TimeToPR      time.Duration `json:"time_to_pr" yaml:"time_to_pr"`
	PRReviewTime  time.Duration `json:"pr_review_time" yaml:"pr_review_time"`
	BuildTime     time.Duration `json:"build_time" yaml:"build_time"`
	DeployLag     time.Duration `json:"deploy_lag" yaml:"deploy_lag"`
	TotalWorkTime time.Duration `json:"total_work_time" yaml:"total_work_time"`
}

// Duration returns the value of field f. Unknown fields report ok == false.
func (m MetricRecord) Duration(f Field) (time.Duration, bool) {
	switch f {
	case LeadTime:
		return m.LeadTime, true
	case CycleTime:
		return m.CycleTime, true
	case CodingTime:
		return m.CodingTime, true
	case TimeToPR:
		return m.TimeToPR, true
	case PRReviewTime:
		return m.PRReviewTime, true
	case BuildTime:
		return m.BuildTime, true
	case DeployLag:
		return m.DeployLag, true
	case TotalWorkTime:
		return m.TotalWorkTime, true
	default:
		return 0, false
	}
}

// Seconds returns field f in seconds, or 0 for an unknown field.
func (m MetricRecord) Seconds(f Field) float64 {
	d, _ := m.Duration(f)
	return d.Seconds()
}

// Derive computes the metric record for a single task. It returns a
// *delivery.MalformedTaskError when a required field is missing or any
// duration would be negative.
func Derive(t delivery.TaskRecord) (MetricRecord, error) {
	if err := t.Validate(); err != nil {
		return MetricRecord{}, err
	}

	m := MetricRecord{
		TicketID:      t.TicketID,
		Developer:     t.Developer,
		Team:          t.Team,
		Sprint:        t.Sprint,
		FirstCommitAt: t.FirstCommitAt,
		DeployedAt:    t.DeployedAt,

		LeadTime:      t.DeployedAt.Sub(t.CreatedAt),
		CycleTime:     t.DeployedAt.Sub(t.InProgressAt),
		CodingTime:    t.FirstCommitAt.Sub(t.InProgressAt),
		TimeToPR:      t.PRCreatedAt.Sub(t.FirstCommitAt),
		PRReviewTime:  t.PRMergedAt.Sub(t.PRCreatedAt),
		BuildTime:     t.DeployedAt.Sub(t.BuildStartedAt),
		DeployLag:     t.DeployedAt.Sub(t.PRMergedAt),
		TotalWorkTime: t.DeployedAt.Sub(t.FirstCommitAt),
	}

	for _, f := range Fields() {
		if d, _ := m.Duration(f); d < 0 {
			return MetricRecord{}, &delivery.MalformedTaskError{
				TicketID: t.TicketID,
				Field:    string(f),
				Reason:   fmt.Sprintf("negative duration %s", d),
			}
		}
	}
	return m, nil
}

// DeriveAll derives every task in order and stops at the first malformed one.
func DeriveAll(tasks []delivery.TaskRecord) ([]MetricRecord, error) {
	out := make([]MetricRecord, 0, len(tasks))
	for i, t := range tasks {
		m, err := Derive(t)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// DeriveValid derives every well-formed task in order. Malformed tasks are
// left out and their errors joined into the returned error.
func DeriveValid(tasks []delivery.TaskRecord) ([]MetricRecord, error) {
	out := make([]MetricRecord, 0, len(tasks))
	var errs []error
	for i, t := range tasks {
		m, err := Derive(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", i, err))
			continue
		}
		out = append(out, m)
	}
	return out, errors.Join(errs...)
}
