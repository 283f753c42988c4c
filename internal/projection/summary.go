// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"fmt"
	"strings"

	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/recommend"
	"github.com/bartekus/cadence/internal/stats"
	"github.com/bartekus/cadence/internal/trend"
)

// MaxSummaryRecommendations caps the recommendation list in the summary.
const MaxSummaryRecommendations = 10

// Run is everything the Markdown summary reports on.
type Run struct {
	Tasks           int
	Malformed       int
	Records         []metrics.MetricRecord
	Reports         []detect.BottleneckReport
	Aggregate       detect.Summary
	Anomalies       int
	DORA            metrics.DORASummary
	HasDORA         bool
	Warnings        []trend.Warning
	Recommendations []recommend.Recommendation
}

// RenderSummary renders the run as a Markdown document.
func RenderSummary(r Run) string {
	var b strings.Builder
	b.WriteString(RenderHeader(1, "Delivery analysis"))
	fmt.Fprintf(&b, "Tasks analyzed: %d", len(r.Records))
	if r.Malformed > 0 {
		fmt.Fprintf(&b, " (%d of %d skipped as malformed)", r.Malformed, r.Tasks)
	}
	b.WriteString("\n\n")

	b.WriteString(RenderHeader(2, "DORA metrics"))
	if r.HasDORA {
		b.WriteString(RenderTable([]string{"Metric", "Value"}, [][]string{
			{"Deployment frequency", fmt.Sprintf("%.2f/day", r.DORA.DeploymentFrequencyPerDay)},
			{"Lead time for changes", fmt.Sprintf("%.2fh", r.DORA.AverageLeadTimeHours)},
			{"Change failure rate", fmt.Sprintf("%.2f%%", r.DORA.ChangeFailureRatePercent)},
			{"Mean time to restore", fmt.Sprintf("%.2fh", r.DORA.MeanTimeToRestoreHours)},
		}))
	} else {
		b.WriteString("No deployments.\n")
	}
	b.WriteString("\n")

	b.WriteString(RenderHeader(2, "Stage distribution (hours)"))
	if len(r.Records) == 0 {
		b.WriteString("No metrics.\n")
	} else {
		b.WriteString(RenderTable([]string{"Stage", "Mean", "P50", "P90", "Max"}, stageRows(r.Records)))
	}
	b.WriteString("\n")

	flagged := 0
	for _, rep := range r.Reports {
		if rep.Flagged() {
			flagged++
		}
	}
	b.WriteString(RenderHeader(2, "Bottlenecks"))
	fmt.Fprintf(&b, "Flagged tasks: %d of %d; multivariate anomalies: %d\n\n", flagged, len(r.Reports), r.Anomalies)
	if flagged > 0 {
		b.WriteString(RenderCounts("Stage", r.Aggregate.ByStage))
		b.WriteString("\n")
		b.WriteString(RenderCounts("Team", r.Aggregate.ByTeam))
		b.WriteString("\n")
		b.WriteString(RenderCounts("Developer", r.Aggregate.ByDeveloper))
		b.WriteString("\n")
	}

	b.WriteString(RenderHeader(2, "Trend warnings"))
	if len(r.Warnings) == 0 {
		b.WriteString("None.\n")
	} else {
		items := make([]string, 0, len(r.Warnings))
		for _, w := range r.Warnings {
			items = append(items, fmt.Sprintf("%s: %s", w.Developer, w.Message))
		}
		b.WriteString(RenderList(items))
	}
	b.WriteString("\n")

	b.WriteString(RenderHeader(2, "Recommendations"))
	top := recommend.Filter(r.Recommendations, recommend.SeverityLow, MaxSummaryRecommendations)
	if len(top) == 0 {
		b.WriteString("None.\n")
	} else {
		items := make([]string, 0, len(top))
		for _, rec := range top {
			items = append(items, fmt.Sprintf("**%s** %s: %s", rec.Severity, rec.Category, rec.Message))
		}
		b.WriteString(RenderList(items))
		if rest := len(r.Recommendations) - len(top); rest > 0 {
			fmt.Fprintf(&b, "\n%d more in the recommendations artifact.\n", rest)
		}
	}
	return b.String()
}

func stageRows(records []metrics.MetricRecord) [][]string {
	rows := make([][]string, 0, len(metrics.Fields()))
	hours := make([]float64, len(records))
	for _, f := range metrics.Fields() {
		for i, m := range records {
			hours[i] = m.Seconds(f) / 3600
		}
		mean, _ := stats.MeanStdDev(hours)
		rows = append(rows, []string{
			string(f),
			fmt.Sprintf("%.2f", mean),
			fmt.Sprintf("%.2f", stats.Percentile(hours, 50)),
			fmt.Sprintf("%.2f", stats.Percentile(hours, 90)),
			fmt.Sprintf("%.2f", stats.Percentile(hours, 100)),
		})
	}
	return rows
}
