// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bartekus/cadence/internal/delivery"
)

// Columns is the CSV header for task files, in write order.
var Columns = []string{
	"ticket_id", "developer", "team", "sprint",
	"created_at", "in_progress_at", "first_commit_at", "pr_created_at",
	"pr_merged_at", "build_started_at", "deployed_at",
	"deployment_success", "restore_time",
	"pr_lines_changed", "test_passed", "incident_reported",
}

var requiredColumns = Columns[:11]

// decodeCSV reads a header row, then one task per row. Column order is free;
// the required identity and timestamp columns must be present. Empty optional
// cells decode to their absent value.
func decodeCSV(r io.Reader) ([]delivery.TaskRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []delivery.TaskRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", c)
		}
	}

	var out []delivery.TaskRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		t, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if out == nil {
		out = []delivery.TaskRecord{}
	}
	return out, nil
}

func parseRow(row []string, index map[string]int) (delivery.TaskRecord, error) {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	t := delivery.TaskRecord{
		TicketID:          cell("ticket_id"),
		Developer:         cell("developer"),
		Team:              cell("team"),
		DeploymentSuccess: true,
	}

	if s := cell("sprint"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return t, fmt.Errorf("sprint: %w", err)
		}
		t.Sprint = n
	}

	stamps := []struct {
		name string
		dst  *time.Time
	}{
		{"created_at", &t.CreatedAt},
		{"in_progress_at", &t.InProgressAt},
		{"first_commit_at", &t.FirstCommitAt},
		{"pr_created_at", &t.PRCreatedAt},
		{"pr_merged_at", &t.PRMergedAt},
		{"build_started_at", &t.BuildStartedAt},
		{"deployed_at", &t.DeployedAt},
	}
	for _, s := range stamps {
		v := cell(s.name)
		if v == "" {
			// Left zero; reported as missing by validation.
			continue
		}
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return t, fmt.Errorf("%s: %w", s.name, err)
		}
		*s.dst = at
	}

	if v := cell("deployment_success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return t, fmt.Errorf("deployment_success: %w", err)
		}
		t.DeploymentSuccess = b
	}
	if v := cell("restore_time"); v != "" {
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return t, fmt.Errorf("restore_time: %w", err)
		}
		t.RestoreTime = &at
	}
	if v := cell("pr_lines_changed"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return t, fmt.Errorf("pr_lines_changed: %w", err)
		}
		t.PRLinesChanged = &n
	}
	var err error
	if t.TestPassed, err = optionalBool(cell("test_passed")); err != nil {
		return t, fmt.Errorf("test_passed: %w", err)
	}
	if t.IncidentReported, err = optionalBool(cell("incident_reported")); err != nil {
		return t, fmt.Errorf("incident_reported: %w", err)
	}
	return t, nil
}

func optionalBool(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func encodeCSV(w io.Writer, tasks []delivery.TaskRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, t := range tasks {
		row := []string{
			t.TicketID, t.Developer, t.Team, strconv.Itoa(t.Sprint),
			stamp(t.CreatedAt), stamp(t.InProgressAt), stamp(t.FirstCommitAt), stamp(t.PRCreatedAt),
			stamp(t.PRMergedAt), stamp(t.BuildStartedAt), stamp(t.DeployedAt),
			strconv.FormatBool(t.DeploymentSuccess), "",
			"", "", "",
		}
		if t.RestoreTime != nil {
			row[12] = stamp(*t.RestoreTime)
		}
		if t.PRLinesChanged != nil {
			row[13] = strconv.Itoa(*t.PRLinesChanged)
		}
		if t.TestPassed != nil {
			row[14] = strconv.FormatBool(*t.TestPassed)
		}
		if t.IncidentReported != nil {
			row[15] = strconv.FormatBool(*t.IncidentReported)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
