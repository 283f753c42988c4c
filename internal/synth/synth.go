// Package synth generates reproducible synthetic delivery tasks for demos
// and tests.
package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bartekus/cadence/internal/delivery"
)

// Options controls the generated batch.
type Options struct {
	Count      int
	Seed       uint64
	Developers []string
	Teams      []string
	// Base is the earliest possible ticket creation time.
	Base time.Time
	// SprintSize is the number of consecutive tasks per sprint.
	SprintSize int
	// FailureRate is the probability that a deployment fails.
	FailureRate float64
}

// DefaultOptions returns a 100-task batch spread over ten days from
// 2025-07-01 09:00 UTC.
func DefaultOptions() Options {
	return Options{
		Count:       100,
		Seed:        42,
		Developers:  []string{"alice", "bob", "carol", "dave"},
		Teams:       []string{"backend", "frontend", "platform", "qa"},
		Base:        time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		SprintSize:  10,
		FailureRate: 0.2,
	}
}

// Generate returns opts.Count well-formed tasks. The same options always
// produce the same tasks.
func Generate(opts Options) ([]delivery.TaskRecord, error) {
	switch {
	case opts.Count < 0:
		return nil, fmt.Errorf("count must be non-negative, got %d", opts.Count)
	case len(opts.Developers) == 0 || len(opts.Teams) == 0:
		return nil, fmt.Errorf("at least one developer and one team are required")
	case opts.SprintSize < 1:
		return nil, fmt.Errorf("sprint size must be at least 1, got %d", opts.SprintSize)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	between := func(lo, hi int) int { return lo + rng.IntN(hi-lo+1) }

	tasks := make([]delivery.TaskRecord, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		created := opts.Base.Add(time.Duration(between(0, 60*24*10)) * time.Minute)
		inProgress := created.Add(time.Duration(between(1, 6)) * time.Hour)
		firstCommit := inProgress.Add(time.Duration(between(1, 8)) * time.Hour)
		prCreated := firstCommit.Add(time.Duration(between(1, 4)) * time.Hour)
		prMerged := prCreated.Add(time.Duration(between(2, 48)) * time.Hour)
		buildStarted := prMerged.Add(time.Duration(between(5, 30)) * time.Minute)
		deployed := buildStarted.Add(time.Duration(between(10, 60)) * time.Minute)

		t := delivery.TaskRecord{
			TicketID:          fmt.Sprintf("TASK-%d", i+1),
			Developer:         opts.Developers[rng.IntN(len(opts.Developers))],
			Team:              opts.Teams[rng.IntN(len(opts.Teams))],
			Sprint:            i / opts.SprintSize,
			CreatedAt:         created,
			InProgressAt:      inProgress,
			FirstCommitAt:     firstCommit,
			PRCreatedAt:       prCreated,
			PRMergedAt:        prMerged,
			BuildStartedAt:    buildStarted,
			DeployedAt:        deployed,
			DeploymentSuccess: rng.Float64() >= opts.FailureRate,
		}
		if !t.DeploymentSuccess {
			restore := deployed.Add(time.Duration(between(30, 180)) * time.Minute)
			t.RestoreTime = &restore
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
