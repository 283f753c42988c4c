package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/cadence/internal/iforest"
	"github.com/bartekus/cadence/internal/metrics"
)

// record builds a metric record with every field set to base and any
// overrides applied.
func record(id string, base time.Duration, overrides map[metrics.Field]time.Duration) metrics.MetricRecord {
	m := metrics.MetricRecord{
		TicketID:      id,
		Developer:     "dev-" + id,
		Team:          "team",
		LeadTime:      base,
		CycleTime:     base,
		CodingTime:    base,
		TimeToPR:      base,
		PRReviewTime:  base,
		BuildTime:     base,
		DeployLag:     base,
		TotalWorkTime: base,
	}
	for f, d := range overrides {
		switch f {
		case metrics.LeadTime:
			m.LeadTime = d
		case metrics.CycleTime:
			m.CycleTime = d
		case metrics.CodingTime:
			m.CodingTime = d
		case metrics.TimeToPR:
			m.TimeToPR = d
		case metrics.PRReviewTime:
			m.PRReviewTime = d
		case metrics.BuildTime:
			m.BuildTime = d
		case metrics.DeployLag:
			m.DeployLag = d
		case metrics.TotalWorkTime:
			m.TotalWorkTime = d
		}
	}
	return m
}

// ramp returns n records whose pr_review_time grows by one hour per record.
func ramp(n int) []metrics.MetricRecord {
	out := make([]metrics.MetricRecord, n)
	for i := range out {
		out[i] = record(fmt.Sprintf("T%d", i), time.Hour, map[metrics.Field]time.Duration{
			metrics.PRReviewTime: time.Duration(i+1) * time.Hour,
		})
	}
	return out
}

func TestPercentilePolicy_ConstantFieldNeverFlags(t *testing.T) {
	records := ramp(10)

	th := ComputeThresholds(records, PercentileThreshold{P: 80})
	for _, m := range records {
		for _, stage := range th.Exceeded(m) {
			assert.Equal(t, string(metrics.PRReviewTime), stage)
		}
	}
	assert.Equal(t, time.Hour.Seconds(), th[metrics.BuildTime])
}

func TestPercentilePolicy_FlagsAboveP80(t *testing.T) {
	records := ramp(10)
	th := ComputeThresholds(records, PercentileThreshold{P: 80})

	// Values 1..10h; P80 rank 7.2 -> 8.2h.
	assert.InDelta(t, 8.2*3600, th[metrics.PRReviewTime], 1e-6)

	var flagged []string
	for _, m := range records {
		if len(th.Exceeded(m)) > 0 {
			flagged = append(flagged, m.TicketID)
		}
	}
	assert.Equal(t, []string{"T8", "T9"}, flagged)
}

func TestDispersionPolicy_SingleTaskNeverFlags(t *testing.T) {
	records := []metrics.MetricRecord{record("solo", 3*time.Hour, nil)}
	th := ComputeThresholds(records, DispersionThreshold{K: 1})

	assert.Empty(t, th.Exceeded(records[0]))
}

func TestDispersionPolicy_MeanPlusKStd(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// Sample std sqrt(32/7) ~ 2.138.
	assert.InDelta(t, 5+2.13809, DispersionThreshold{K: 1}.Threshold(values), 1e-4)
	assert.InDelta(t, 5.0, DispersionThreshold{K: 0}.Threshold(values), 1e-9)
	assert.Equal(t, 3.3, DispersionThreshold{K: 1}.Threshold([]float64{3.3, 3.3, 3.3}))
}

func TestThresholds_ListsEveryExceededField(t *testing.T) {
	records := make([]metrics.MetricRecord, 0, 10)
	for i := 0; i < 9; i++ {
		records = append(records, record(fmt.Sprintf("T%d", i), time.Duration(i+1)*time.Minute, nil))
	}
	slow := record("slow", time.Hour, map[metrics.Field]time.Duration{
		metrics.CodingTime: time.Second,
	})
	records = append(records, slow)

	th := ComputeThresholds(records, PercentileThreshold{P: 80})
	got := th.Exceeded(slow)

	want := []string{}
	for _, f := range metrics.Fields() {
		if f != metrics.CodingTime {
			want = append(want, string(f))
		}
	}
	assert.Equal(t, want, got)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(PolicyPercentile, 80, 1)
	require.NoError(t, err)
	assert.Equal(t, PolicyPercentile, p.Name())

	p, err = NewPolicy(PolicyDispersion, 80, 1.5)
	require.NoError(t, err)
	assert.Equal(t, DispersionThreshold{K: 1.5}, p)

	_, err = NewPolicy("median", 80, 1)
	assert.Error(t, err)
	_, err = NewPolicy(PolicyPercentile, 0, 1)
	assert.Error(t, err)
	_, err = NewPolicy(PolicyDispersion, 80, -1)
	assert.Error(t, err)
}

func TestDetect_HeuristicOnly(t *testing.T) {
	records := ramp(10)

	res, err := NewDetector(PercentileThreshold{P: 80}, nil).Detect(records)
	require.NoError(t, err)
	require.Len(t, res.Reports, 10)

	for i, r := range res.Reports {
		assert.Equal(t, records[i].TicketID, r.TicketID)
		assert.False(t, r.AnomalyFlag)
		assert.Equal(t, len(r.Stages) > 0, r.HeuristicFlag)
	}
	assert.Equal(t, []string{"pr_review_time"}, res.Reports[9].Stages)
	assert.NotNil(t, res.Reports[0].Stages)
	assert.Empty(t, res.Reports[0].Stages)
}

// outlierBatch returns 50 tightly clustered records and one extreme record.
func outlierBatch() []metrics.MetricRecord {
	records := make([]metrics.MetricRecord, 0, 51)
	for i := 0; i < 50; i++ {
		d := time.Duration(60+i%7) * time.Minute
		records = append(records, record(fmt.Sprintf("T%d", i), d, nil))
	}
	return append(records, record("odd", 40*time.Hour, nil))
}

func TestDetect_AnomalyOnlyGetsMarker(t *testing.T) {
	records := outlierBatch()

	// The 100th percentile equals the maximum, so nothing is heuristically flagged.
	det := NewDetector(PercentileThreshold{P: 100}, NewAnomalyDetector(iforest.DefaultOptions()))
	res, err := det.Detect(records)
	require.NoError(t, err)

	odd := res.Reports[50]
	assert.True(t, odd.AnomalyFlag)
	assert.False(t, odd.HeuristicFlag)
	assert.Equal(t, []string{MarkerMultivariate}, odd.Stages)
}

func TestDetect_AnomalyAppendsNeverOverwrites(t *testing.T) {
	records := outlierBatch()

	det := NewDetector(PercentileThreshold{P: 80}, NewAnomalyDetector(iforest.DefaultOptions()))
	res, err := det.Detect(records)
	require.NoError(t, err)

	odd := res.Reports[50]
	assert.True(t, odd.AnomalyFlag)
	assert.True(t, odd.HeuristicFlag)
	assert.Len(t, odd.Stages, 8)
	assert.NotContains(t, odd.Stages, MarkerMultivariate)
}

func TestDetect_Deterministic(t *testing.T) {
	records := outlierBatch()
	det := NewDetector(DispersionThreshold{K: 1}, NewAnomalyDetector(iforest.DefaultOptions()))

	a, err := det.Detect(records)
	require.NoError(t, err)
	b, err := det.Detect(records)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDetect_SmallBatches(t *testing.T) {
	det := NewDetector(PercentileThreshold{P: 80}, NewAnomalyDetector(iforest.DefaultOptions()))

	res, err := det.Detect(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Reports)

	for n := 1; n < 10; n++ {
		res, err := det.Detect(ramp(n))
		require.NoError(t, err, "batch of %d", n)
		assert.Len(t, res.Reports, n)
	}
}

func TestDetect_InvalidAnomalyOptions(t *testing.T) {
	opts := iforest.DefaultOptions()
	opts.Trees = 0

	_, err := NewDetector(PercentileThreshold{P: 80}, NewAnomalyDetector(opts)).Detect(ramp(5))
	assert.Error(t, err)
}
