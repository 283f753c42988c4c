package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/cadence/internal/delivery"
)

func TestComputeDORA_Empty(t *testing.T) {
	s, ok := ComputeDORA(nil)
	assert.False(t, ok)
	assert.Equal(t, DORASummary{}, s)
}

func TestComputeDORA_ChangeFailureRate(t *testing.T) {
	tasks := make([]delivery.TaskRecord, 0, 10)
	for i := 0; i < 10; i++ {
		rec := task(fmt.Sprintf("TASK-%d", i))
		if i < 3 {
			rec.DeploymentSuccess = false
		}
		tasks = append(tasks, rec)
	}

	s, ok := ComputeDORA(tasks)
	require.True(t, ok)
	assert.Equal(t, 30.0, s.ChangeFailureRatePercent)
	// No restore times recorded.
	assert.Equal(t, 0.0, s.MeanTimeToRestoreHours)
}

func TestComputeDORA_Figures(t *testing.T) {
	a := task("A")
	b := task("B")
	b.DeployedAt = a.DeployedAt.Add(24 * time.Hour)
	c := task("C")
	c.DeploymentSuccess = false
	restore := c.DeployedAt.Add(90 * time.Minute)
	c.RestoreTime = &restore

	s, ok := ComputeDORA([]delivery.TaskRecord{a, b, c})
	require.True(t, ok)

	// Three deployments over two distinct days.
	assert.Equal(t, 1.5, s.DeploymentFrequencyPerDay)
	// (27 + 51 + 27) / 3 hours from first commit to deploy.
	assert.Equal(t, 35.0, s.AverageLeadTimeHours)
	assert.Equal(t, 33.33, s.ChangeFailureRatePercent)
	assert.Equal(t, 1.5, s.MeanTimeToRestoreHours)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 30.0, round2(3.0/10.0*100))
	assert.Equal(t, 1.23, round2(1.234))
	assert.Equal(t, 1.24, round2(1.235001))
}
