// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

// Summary counts flagged stage occurrences by team, developer and stage.
type Summary struct {
	ByTeam      map[string]int `json:"by_team" yaml:"by_team"`
	ByDeveloper map[string]int `json:"by_developer" yaml:"by_developer"`
	ByStage     map[string]int `json:"by_stage" yaml:"by_stage"`
}

// Aggregate adds one count per (report, stage) pair to each of the three
// mappings. A report with three stages counts three times for its team.
func Aggregate(reports []BottleneckReport) Summary {
	s := Summary{
		ByTeam:      map[string]int{},
		ByDeveloper: map[string]int{},
		ByStage:     map[string]int{},
	}
	for _, r := range reports {
		for _, stage := range r.Stages {
			s.ByTeam[r.Team]++
			s.ByDeveloper[r.Developer]++
			s.ByStage[stage]++
		}
	}
	return s
}

// Pairs returns the number of (report, stage) pairs counted.
func (s Summary) Pairs() int {
	var n int
	for _, c := range s.ByStage {
		n += c
	}
	return n
}
