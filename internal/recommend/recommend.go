// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Cadence - Cadence is a delivery workflow analysis tool for engineering teams.
It derives lifecycle metrics from delivery records, detects bottlenecks, anomalies and sprint regressions, and turns findings into actionable recommendations.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package recommend maps detector, trend and DORA findings to categorized,
// severity-tagged recommendations.
package recommend

import (
	"fmt"
	"slices"
	"strings"
)

// Severity orders recommendations. Low < Medium < High.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// MarshalText renders the severity by name in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityLow || s > SeverityHigh {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name, case-insensitively.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses "low", "medium" or "high".
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity %q (must be low, medium or high)", name)
	}
}

// Recommendation is one actionable finding. Task-scoped recommendations carry
// the task identity; developer-scoped ones carry only Developer.
type Recommendation struct {
	Category  string   `json:"category" yaml:"category"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Message   string   `json:"message" yaml:"message"`
	TicketID  string   `json:"ticket_id,omitempty" yaml:"ticket_id,omitempty"`
	Developer string   `json:"developer,omitempty" yaml:"developer,omitempty"`
	Team      string   `json:"team,omitempty" yaml:"team,omitempty"`
}

// SortBySeverity orders recommendations from High to Low, keeping the input
// order within a severity.
func SortBySeverity(recs []Recommendation) {
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return int(b.Severity) - int(a.Severity)
	})
}

// Filter returns the recommendations at or above minSeverity, capped at limit
// entries when limit is positive.
func Filter(recs []Recommendation, minSeverity Severity, limit int) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Severity < minSeverity {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
