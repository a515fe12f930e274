package stage

import (
	"fmt"
	"time"
)

// StageName represents a named stage in the pipeline
type StageName string

// Predefined stage names
const (
	StageAnxiety    StageName = "anxiety"
	StageNightlight StageName = "nightlight"
	StageMerge      StageName = "merge"
	StageEDA        StageName = "eda"
	StageTrain      StageName = "train"
	StageVisualize  StageName = "visualize"
	StageMap        StageName = "map"

	// Outside the default order
	StageAnxietyMap StageName = "anxiety-map"
)

// DefaultOrder is the fixed execution order of the pipeline
var DefaultOrder = []StageName{
	StageAnxiety,
	StageNightlight,
	StageMerge,
	StageEDA,
	StageTrain,
	StageVisualize,
	StageMap,
}

// Descriptions is the one-line summary shown for each stage
var Descriptions = map[StageName]string{
	StageAnxiety:    "filter anxiety prevalence to the reference year",
	StageNightlight: "average nighttime light intensity per country",
	StageMerge:      "inner-join anxiety and nightlight tables",
	StageEDA:        "descriptive statistics, correlation and plots",
	StageTrain:      "fit and evaluate regression models",
	StageVisualize:  "prediction and residual plots per model",
	StageMap:        "interactive choropleth of predictions",
	StageAnxietyMap: "interactive choropleth of raw prevalence",
}

// ParseStageName validates a stage name
func ParseStageName(s string) (StageName, error) {
	name := StageName(s)
	if _, ok := Descriptions[name]; !ok {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return name, nil
}

// State is the lifecycle state of a stage within one run
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CanTransition reports whether PENDING -> RUNNING -> {SUCCEEDED, FAILED} allows from -> to
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning
	case StateRunning:
		return to == StateSucceeded || to == StateFailed
	default:
		return false
	}
}

// StagePlan represents an ordered list of stages
type StagePlan struct {
	Stages []StageName `json:"stages"`
}

// NewStagePlan creates a new stage plan
func NewStagePlan(stages []StageName) *StagePlan {
	return &StagePlan{Stages: stages}
}

// Validate checks if the stage plan is valid
func (p *StagePlan) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("stage plan must contain at least one stage")
	}

	seen := make(map[StageName]bool)
	for _, name := range p.Stages {
		if _, ok := Descriptions[name]; !ok {
			return fmt.Errorf("unknown stage %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate stage name: %s", name)
		}
		seen[name] = true
	}
	return nil
}

// StageResult represents the outcome of one stage within a run
type StageResult struct {
	StageName StageName     `json:"stage_name"`
	State     State         `json:"state"`
	Output    string        `json:"output,omitempty"` // captured stdout and stderr
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// PipelineResult contains the results of executing a stage plan
type PipelineResult struct {
	RunID   string          `json:"run_id"`
	Plan    *StagePlan      `json:"plan"`
	Results []StageResult   `json:"results"`
	Overall PipelineSummary `json:"overall"`
}

// PipelineSummary provides high-level pipeline statistics
type PipelineSummary struct {
	TotalStages   int           `json:"total_stages"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	Pending       int           `json:"pending"`
	TotalDuration time.Duration `json:"total_duration"`
}

// NewPipelineResult creates a result with every planned stage PENDING
func NewPipelineResult(runID string, plan *StagePlan) *PipelineResult {
	r := &PipelineResult{
		RunID:   runID,
		Plan:    plan,
		Results: make([]StageResult, len(plan.Stages)),
	}
	for i, name := range plan.Stages {
		r.Results[i] = StageResult{StageName: name, State: StatePending}
	}
	r.summarize()
	return r
}

// Transition moves the stage at index i to the given state
func (r *PipelineResult) Transition(i int, to State) error {
	from := r.Results[i].State
	if !CanTransition(from, to) {
		return fmt.Errorf("stage %s: invalid transition %s -> %s", r.Results[i].StageName, from, to)
	}
	r.Results[i].State = to
	r.summarize()
	return nil
}

func (r *PipelineResult) summarize() {
	s := PipelineSummary{TotalStages: len(r.Results)}
	for _, res := range r.Results {
		switch res.State {
		case StateSucceeded:
			s.Successful++
		case StateFailed:
			s.Failed++
		case StatePending:
			s.Pending++
		}
		s.TotalDuration += res.Duration
	}
	r.Overall = s
}

// Success returns true if all stages succeeded
func (r *PipelineResult) Success() bool {
	return r.Overall.Successful == r.Overall.TotalStages
}

// FailedStages lists the names of stages that ended FAILED
func (r *PipelineResult) FailedStages() []StageName {
	var out []StageName
	for _, res := range r.Results {
		if res.State == StateFailed {
			out = append(out, res.StageName)
		}
	}
	return out
}
