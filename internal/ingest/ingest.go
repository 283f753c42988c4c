// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package ingest reads and writes delivery task records as JSON, YAML or CSV.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bartekus/cadence/internal/delivery"
)

// ErrUnknownFormat is returned for file extensions with no codec.
var ErrUnknownFormat = errors.New("unknown task file format")

// Format is a task file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// LoadFile reads all task records from path. Records are decoded, not
// validated; validation happens when metrics are derived.
func LoadFile(path string) ([]delivery.TaskRecord, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("opening tasks: %w", err)
	}
	defer func() { _ = f.Close() }()

	tasks, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return tasks, nil
}

// Decode reads a list of task records in the given format.
func Decode(r io.Reader, format Format) ([]delivery.TaskRecord, error) {
	switch format {
	case FormatJSON:
		var raw []rawTask
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		return fromRaw(raw), nil
	case FormatYAML:
		var raw []rawTask
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		return fromRaw(raw), nil
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// rawTask mirrors delivery.TaskRecord with deployment_success optional.
type rawTask struct {
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

	DeploymentSuccess *bool      `json:"deployment_success" yaml:"deployment_success"`
	RestoreTime       *time.Time `json:"restore_time" yaml:"restore_time"`

	PRLinesChanged   *int  `json:"pr_lines_changed" yaml:"pr_lines_changed"`
	TestPassed       *bool `json:"test_passed" yaml:"test_passed"`
	IncidentReported *bool `json:"incident_reported" yaml:"incident_reported"`
}

func (r rawTask) task() delivery.TaskRecord {
	success := true
	if r.DeploymentSuccess != nil {
		success = *r.DeploymentSuccess
	}
	return delivery.TaskRecord{
		TicketID:          r.TicketID,
		Developer:         r.Developer,
		Team:              r.Team,
		Sprint:            r.Sprint,
		CreatedAt:         r.CreatedAt,
		InProgressAt:      r.InProgressAt,
		FirstCommitAt:     r.FirstCommitAt,
		PRCreatedAt:       r.PRCreatedAt,
		PRMergedAt:        r.PRMergedAt,
		BuildStartedAt:    r.BuildStartedAt,
		DeployedAt:        r.DeployedAt,
		DeploymentSuccess: success,
		RestoreTime:       r.RestoreTime,
		PRLinesChanged:    r.PRLinesChanged,
		TestPassed:        r.TestPassed,
		IncidentReported:  r.IncidentReported,
	}
}

func fromRaw(raw []rawTask) []delivery.TaskRecord {
	out := make([]delivery.TaskRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.task())
	}
	return out
}

// Encode writes tasks in the given format.
func Encode(w io.Writer, format Format, tasks []delivery.TaskRecord) error {
	if tasks == nil {
		tasks = []delivery.TaskRecord{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return encodeCSV(w, tasks)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
