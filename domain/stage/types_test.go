package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateRunning, true},
		{StatePending, StateSucceeded, false},
		{StateRunning, StateSucceeded, true},
		{StateRunning, StateFailed, true},
		{StateRunning, StatePending, false},
		{StateSucceeded, StateRunning, false},
		{StateFailed, StateRunning, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStagePlan_Validate(t *testing.T) {
	assert.NoError(t, NewStagePlan(DefaultOrder).Validate())
	assert.NoError(t, NewStagePlan([]StageName{StageAnxietyMap}).Validate())
	assert.Error(t, NewStagePlan(nil).Validate())
	assert.Error(t, NewStagePlan([]StageName{StageTrain, StageTrain}).Validate())
	assert.Error(t, NewStagePlan([]StageName{"cleanup"}).Validate())
}

func TestPipelineResult_Lifecycle(t *testing.T) {
	r := NewPipelineResult("run-1", NewStagePlan([]StageName{StageAnxiety, StageMerge, StageTrain}))
	assert.Equal(t, 3, r.Overall.Pending)
	assert.False(t, r.Success())

	require.NoError(t, r.Transition(0, StateRunning))
	require.NoError(t, r.Transition(0, StateSucceeded))
	require.NoError(t, r.Transition(1, StateRunning))
	require.NoError(t, r.Transition(1, StateFailed))
	assert.Error(t, r.Transition(1, StateSucceeded), "terminal states are final")
	assert.Error(t, r.Transition(2, StateFailed), "a stage must run before it fails")

	assert.Equal(t, PipelineSummary{TotalStages: 3, Successful: 1, Failed: 1, Pending: 1}, r.Overall)
	assert.Equal(t, []StageName{StageMerge}, r.FailedStages())
	assert.False(t, r.Success())
}

func TestParseStageName(t *testing.T) {
	name, err := ParseStageName("anxiety-map")
	require.NoError(t, err)
	assert.Equal(t, StageAnxietyMap, name)

	_, err = ParseStageName("Anxiety")
	assert.Error(t, err)
	assert.NotContains(t, DefaultOrder, StageAnxietyMap)
}
