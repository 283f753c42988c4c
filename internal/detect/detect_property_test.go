package detect

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/bartekus/cadence/internal/iforest"
	"github.com/bartekus/cadence/internal/metrics"
)

func drawRecords(rt *rapid.T) []metrics.MetricRecord {
	n := rapid.IntRange(0, 40).Draw(rt, "n")
	records := make([]metrics.MetricRecord, n)
	for i := range records {
		overrides := make(map[metrics.Field]time.Duration, 8)
		for _, f := range metrics.Fields() {
			overrides[f] = time.Duration(rapid.Int64Range(0, 72*3600).Draw(rt, string(f))) * time.Second
		}
		records[i] = record(fmt.Sprintf("T%d", i), 0, overrides)
	}
	return records
}

// A report lists stages exactly when one of the detectors fired, and the
// multivariate marker appears only on anomaly-only reports.
func TestProperty_StagesEmptyIffUnflagged(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		records := drawRecords(rt)

		var policy ThresholdPolicy = PercentileThreshold{P: 80}
		if rapid.Bool().Draw(rt, "dispersion") {
			policy = DispersionThreshold{K: rapid.Float64Range(0, 3).Draw(rt, "k")}
		}

		res, err := NewDetector(policy, NewAnomalyDetector(iforest.DefaultOptions())).Detect(records)
		if err != nil {
			rt.Fatalf("detect: %v", err)
		}
		if len(res.Reports) != len(records) {
			rt.Fatalf("got %d reports for %d records", len(res.Reports), len(records))
		}

		for _, r := range res.Reports {
			if (len(r.Stages) == 0) != !r.Flagged() {
				rt.Fatalf("report %s: stages %v with heuristic=%v anomaly=%v", r.TicketID, r.Stages, r.HeuristicFlag, r.AnomalyFlag)
			}
			for _, s := range r.Stages {
				if s == MarkerMultivariate && (r.HeuristicFlag || !r.AnomalyFlag) {
					rt.Fatalf("report %s: marker on a heuristic report", r.TicketID)
				}
			}
		}
	})
}

// Per-stage counts always sum to the number of (report, stage) pairs.
func TestProperty_AggregateSumsPairs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		records := drawRecords(rt)
		res, err := NewDetector(PercentileThreshold{P: 80}, nil).Detect(records)
		if err != nil {
			rt.Fatalf("detect: %v", err)
		}

		var pairs int
		for _, r := range res.Reports {
			pairs += len(r.Stages)
		}
		s := Aggregate(res.Reports)
		if s.Pairs() != pairs {
			rt.Fatalf("stage sum %d, want %d", s.Pairs(), pairs)
		}
		var team, dev int
		for _, c := range s.ByTeam {
			team += c
		}
		for _, c := range s.ByDeveloper {
			dev += c
		}
		if team != pairs || dev != pairs {
			rt.Fatalf("team sum %d, developer sum %d, want %d", team, dev, pairs)
		}
	})
}
