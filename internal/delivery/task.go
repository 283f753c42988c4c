// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package delivery defines the task records consumed by the analysis engine.
package delivery

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedTask matches every MalformedTaskError via errors.Is.
var ErrMalformedTask = errors.New("malformed task")

// TaskRecord is one delivered (or failed) unit of work with its lifecycle timestamps.
// Records are immutable once ingested.
type TaskRecord struct {
	TicketID  string `json:"ticket_id" yaml:"ticket_id"`
	Developer string `json:"developer" yaml:"developer"`
	Team      string `json:"team" yaml:"team"`
	Sprint    int    `json:"sprint" yaml:"sprint"`

	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	InProgressAt   time.Time `json:"in_progress_at" yaml:"in_progress_at"`
	FirstCommitAt  time.Time `json:"first_commit_at" yaml:"first_commit_at"`
	PRCreatedAt    time.Time `json:"pr_created_at" yaml:"pr_created_at"`
	PRMergedAt     time.Time `json:"pr_merged_at" yaml:"pr_merged_at"`
	BuildStartedAt time.Time `json:"build_started_at" yaml:"build_started_at"`
	DeployedAt     time.Time `json:"deployed_at" yaml:"deployed_at"`

	DeploymentSuccess bool       `json:"deployment_success" yaml:"deployment_success"`
	RestoreTime       *time.Time `json:"restore_time,omitempty" yaml:"restore_time,omitempty"`

	// Informational fields carried through ingestion and export.
	PRLinesChanged   *int  `json:"pr_lines_changed,omitempty" yaml:"pr_lines_changed,omitempty"`
	TestPassed       *bool `json:"test_passed,omitempty" yaml:"test_passed,omitempty"`
	IncidentReported *bool `json:"incident_reported,omitempty" yaml:"incident_reported,omitempty"`
}

// Stamp names one lifecycle timestamp of a TaskRecord.
type Stamp struct {
	Field string
	At    time.Time
}

// Lifecycle returns the seven lifecycle timestamps in their required order.
func (t TaskRecord) Lifecycle() []Stamp {
	return []Stamp{
		{Field: "created_at", At: t.CreatedAt},
		{Field: "in_progress_at", At: t.InProgressAt},
		{Field: "first_commit_at", At: t.FirstCommitAt},
		{Field: "pr_created_at", At: t.PRCreatedAt},
		{Field: "pr_merged_at", At: t.PRMergedAt},
		{Field: "build_started_at", At: t.BuildStartedAt},
		{Field: "deployed_at", At: t.DeployedAt},
	}
}

// Validate checks identity fields, timestamp presence and the restore time.
// Ordering between lifecycle stamps is checked by the metrics deriver, which
// reports the first duration that would go negative.
func (t TaskRecord) Validate() error {
	switch {
	case t.TicketID == "":
		return &MalformedTaskError{Field: "ticket_id", Reason: "missing"}
	case t.Developer == "":
		return &MalformedTaskError{TicketID: t.TicketID, Field: "developer", Reason: "missing"}
	case t.Team == "":
		return &MalformedTaskError{TicketID: t.TicketID, Field: "team", Reason: "missing"}
	}

	for _, s := range t.Lifecycle() {
		if s.At.IsZero() {
			return &MalformedTaskError{TicketID: t.TicketID, Field: s.Field, Reason: "missing"}
		}
	}

	if t.RestoreTime != nil && t.RestoreTime.Before(t.DeployedAt) {
		return &MalformedTaskError{
			TicketID: t.TicketID,
			Field:    "restore_time",
			Reason:   "earlier than deployed_at",
		}
	}
	return nil
}

// MalformedTaskError reports a task whose fields cannot produce valid metrics.
type MalformedTaskError struct {
	TicketID string
	Field    string
	Reason   string
}

func (e *MalformedTaskError) Error() string {
	if e.TicketID == "" {
		return fmt.Sprintf("malformed task: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed task %s: %s %s", e.TicketID, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedTask) hold for every MalformedTaskError.
func (e *MalformedTaskError) Is(target error) bool {
	return target == ErrMalformedTask
}
