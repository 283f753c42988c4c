// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/recommend"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24)
	valueStyle = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

func severityStyle(s recommend.Severity) lipgloss.Style {
	switch s {
	case recommend.SeverityHigh:
		return severityHigh
	case recommend.SeverityMedium:
		return severityMedium
	default:
		return severityLow
	}
}

func statusStyle(status string) lipgloss.Style {
	if status == "pass" {
		return passStyle
	}
	return failStyle
}

func printRow(w io.Writer, label, value string) {
	_, _ = fmt.Fprintln(w, labelStyle.Render(label)+valueStyle.Render(value))
}

func printDORA(w io.Writer, s metrics.DORASummary) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("DORA metrics"))
	printRow(w, "Deployment frequency", fmt.Sprintf("%.2f/day", s.DeploymentFrequencyPerDay))
	printRow(w, "Lead time for changes", fmt.Sprintf("%.2fh", s.AverageLeadTimeHours))
	printRow(w, "Change failure rate", fmt.Sprintf("%.2f%%", s.ChangeFailureRatePercent))
	printRow(w, "Mean time to restore", fmt.Sprintf("%.2fh", s.MeanTimeToRestoreHours))
}

func printRecommendations(w io.Writer, recs []recommend.Recommendation, limit int) {
	top := recommend.Filter(recs, recommend.SeverityMedium, limit)
	if len(top) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, titleStyle.Render("Top recommendations"))
	for _, r := range top {
		tag := severityStyle(r.Severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(r.Severity.String())))
		_, _ = fmt.Fprintf(w, "%s %s: %s\n", tag, r.Category, r.Message)
	}
}
