// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"slices"

	"github.com/bartekus/cadence/internal/detect"
)

// DefaultStageAdvice returns the built-in advice for each metric field.
func DefaultStageAdvice() map[string][]string {
	return map[string][]string{
		"lead_time": {
			"Re-evaluate ticket prioritization or backlog grooming processes.",
			"Reduce handoffs between planning and development.",
		},
		"cycle_time": {
			"Identify blockers during development.",
			"Use task breakdown for large stories to improve visibility.",
		},
		"coding_time": {
			"Consider pairing or early feedback on complex tasks.",
			"Check if requirements were unclear or too broad.",
		},
		"time_to_pr": {
			"Encourage smaller, more frequent commits.",
			"Promote earlier PR creation for parallel review.",
		},
		"pr_review_time": {
			"Add more reviewers or automate basic code checks.",
			"Set SLAs for PR response times within the team.",
		},
		"build_time": {
			"Optimize build pipeline or use parallel jobs.",
			"Check for flaky or slow integration tests.",
		},
		"deploy_lag": {
			"Automate deployment triggers post-merge.",
			"Evaluate why merged code is waiting (e.g., batch deploys?).",
		},
		"total_work_time": {
			"Look into cross-team coordination or context switching delays.",
			"Encourage working in focused sprints with WIP limits.",
		},
	}
}

// TaskAdvice is the stage-keyed advice for one bottleneck report.
type TaskAdvice struct {
	TicketID  string   `json:"ticket_id" yaml:"ticket_id"`
	Developer string   `json:"developer" yaml:"developer"`
	Team      string   `json:"team" yaml:"team"`
	Stages    []string `json:"stages" yaml:"stages"`
	Advice    []string `json:"advice" yaml:"advice"`
}

// StageMapper maps flagged stages to static advice.
type StageMapper struct {
	advice map[string][]string
}

// NewStageMapper copies advice so later changes to the caller's map do not
// leak into the mapper.
func NewStageMapper(advice map[string][]string) *StageMapper {
	own := make(map[string][]string, len(advice))
	for k, v := range advice {
		own[k] = slices.Clone(v)
	}
	return &StageMapper{advice: own}
}

// Advise concatenates the advice of every flagged stage in report order.
// Stages without advice, such as the multivariate marker, contribute nothing.
// A stage listed twice contributes its advice twice.
func (m *StageMapper) Advise(r detect.BottleneckReport) TaskAdvice {
	out := TaskAdvice{
		TicketID:  r.TicketID,
		Developer: r.Developer,
		Team:      r.Team,
		Stages:    slices.Clone(r.Stages),
		Advice:    []string{},
	}
	for _, stage := range r.Stages {
		out.Advice = append(out.Advice, m.advice[stage]...)
	}
	return out
}

// AdviseAll maps every report in order.
func (m *StageMapper) AdviseAll(reports []detect.BottleneckReport) []TaskAdvice {
	out := make([]TaskAdvice, 0, len(reports))
	for _, r := range reports {
		out = append(out, m.Advise(r))
	}
	return out
}
