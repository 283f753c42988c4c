package recommend

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/cadence/internal/detect"
	"github.com/bartekus/cadence/internal/metrics"
	"github.com/bartekus/cadence/internal/trend"
)

func TestStageMapper_ConcatenatesInStageOrder(t *testing.T) {
	m := NewStageMapper(DefaultStageAdvice())
	got := m.Advise(detect.BottleneckReport{
		TicketID: "T-1",
		Stages:   []string{"pr_review_time", "build_time"},
	})

	assert.Equal(t, "T-1", got.TicketID)
	assert.Equal(t, []string{
		"Add more reviewers or automate basic code checks.",
		"Set SLAs for PR response times within the team.",
		"Optimize build pipeline or use parallel jobs.",
		"Check for flaky or slow integration tests.",
	}, got.Advice)
}

func TestStageMapper_UnknownAndEmptyStages(t *testing.T) {
	m := NewStageMapper(DefaultStageAdvice())

	got := m.Advise(detect.BottleneckReport{TicketID: "T-2", Stages: []string{}})
	assert.NotNil(t, got.Advice)
	assert.Empty(t, got.Advice)

	got = m.Advise(detect.BottleneckReport{TicketID: "T-3", Stages: []string{detect.MarkerMultivariate}})
	assert.Empty(t, got.Advice)
}

func TestStageMapper_CopiesInput(t *testing.T) {
	advice := map[string][]string{"lead_time": {"a"}}
	m := NewStageMapper(advice)
	advice["lead_time"][0] = "changed"
	advice["cycle_time"] = []string{"b"}

	got := m.Advise(detect.BottleneckReport{Stages: []string{"lead_time", "cycle_time"}})
	assert.Equal(t, []string{"a"}, got.Advice)
}

func TestSLAMapper_Evaluate(t *testing.T) {
	s := NewSLAMapper(DefaultSLALimits().Rules())

	rec := metrics.MetricRecord{
		TicketID:     "T-9",
		Developer:    "alice",
		Team:         "backend",
		PRReviewTime: 40 * time.Hour,
		LeadTime:     24 * time.Hour,
		DeployLag:    3 * time.Hour,
		BuildTime:    1800 * time.Second,
		CycleTime:    10 * time.Hour,
	}

	got := s.Evaluate(rec)
	require.Len(t, got, 2)

	assert.Equal(t, "Code Review", got[0].Category)
	assert.Equal(t, SeverityHigh, got[0].Severity)
	assert.Equal(t, "T-9", got[0].TicketID)
	assert.Equal(t, "alice", got[0].Developer)
	assert.Equal(t, "backend", got[0].Team)
	assert.Contains(t, got[0].Message, "40.0h")

	assert.Equal(t, "Deployment", got[1].Category)
	assert.Equal(t, SeverityMedium, got[1].Severity)
}

func TestSLAMapper_BoundaryIsNotAViolation(t *testing.T) {
	l := DefaultSLALimits()
	s := NewSLAMapper(l.Rules())

	rec := metrics.MetricRecord{
		PRReviewTime: l.PRReview,
		LeadTime:     l.LeadTime,
		DeployLag:    l.DeployLag,
		BuildTime:    l.Build,
		CycleTime:    l.CycleTime,
	}
	assert.Empty(t, s.Evaluate(rec))
}

func TestDORATargets_Evaluate(t *testing.T) {
	targets := DefaultDORATargets()

	healthy := metrics.DORASummary{
		DeploymentFrequencyPerDay: 1,
		AverageLeadTimeHours:      48,
		MeanTimeToRestoreHours:    4,
		ChangeFailureRatePercent:  20,
	}
	assert.Empty(t, targets.Evaluate(healthy))

	poor := metrics.DORASummary{
		DeploymentFrequencyPerDay: 0.5,
		AverageLeadTimeHours:      72,
		MeanTimeToRestoreHours:    6,
		ChangeFailureRatePercent:  30,
	}
	got := targets.Evaluate(poor)
	require.Len(t, got, 4)
	for _, r := range got {
		assert.Equal(t, SeverityHigh, r.Severity)
		assert.Empty(t, r.TicketID)
	}
	assert.Equal(t, "Change Failure", got[3].Category)
	assert.Contains(t, got[3].Message, "30.00%")
}

func TestFromTrends(t *testing.T) {
	got := FromTrends([]trend.Warning{{
		Developer:       "bob",
		MetricName:      "pr_review_time",
		Sprint:          3,
		PreviousAverage: 100,
		CurrentValue:    150,
		Message:         "pr_review_time increased by over 20% in sprint 3",
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "Trend", got[0].Category)
	assert.Equal(t, SeverityMedium, got[0].Severity)
	assert.Equal(t, "bob", got[0].Developer)
	assert.Empty(t, got[0].TicketID)
	assert.Equal(t, "pr_review_time increased by over 20% in sprint 3 for bob: 150s against a 100s average.", got[0].Message)

	assert.NotNil(t, FromTrends(nil))
}

func TestSortBySeverity_Stable(t *testing.T) {
	recs := []Recommendation{
		{Message: "low", Severity: SeverityLow},
		{Message: "high-1", Severity: SeverityHigh},
		{Message: "medium", Severity: SeverityMedium},
		{Message: "high-2", Severity: SeverityHigh},
	}
	SortBySeverity(recs)

	var order []string
	for _, r := range recs {
		order = append(order, r.Message)
	}
	assert.Equal(t, []string{"high-1", "high-2", "medium", "low"}, order)
}

func TestFilter(t *testing.T) {
	recs := []Recommendation{
		{Message: "a", Severity: SeverityHigh},
		{Message: "b", Severity: SeverityLow},
		{Message: "c", Severity: SeverityMedium},
		{Message: "d", Severity: SeverityHigh},
	}

	assert.Len(t, Filter(recs, SeverityMedium, 0), 3)
	got := Filter(recs, SeverityMedium, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[1].Message)
}

func TestSeverity_Text(t *testing.T) {
	b, err := json.Marshal(Recommendation{Category: "X", Severity: SeverityMedium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"X","severity":"Medium","message":""}`, string(b))

	var r Recommendation
	require.NoError(t, json.Unmarshal([]byte(`{"severity":"high"}`), &r))
	assert.Equal(t, SeverityHigh, r.Severity)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)

	_, err = Severity(0).MarshalText()
	assert.Error(t, err)
}
