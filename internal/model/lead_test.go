package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineStageValues(t *testing.T) {
	tests := []struct {
		stage PipelineStage
		want  string
	}{
		{StageNew, "new"},
		{StageContacted, "contacted"},
		{StageQualified, "qualified"},
		{StageWon, "won"},
		{StageLost, "lost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(tt.stage))
	}
}

func TestParsePipelineStage(t *testing.T) {
	for _, valid := range []string{"new", "contacted", "qualified", "won", "lost"} {
		stage, err := ParsePipelineStage(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(stage))
	}
}

func TestParsePipelineStage_Unknown(t *testing.T) {
	for _, invalid := range []string{"banana", "NEW", "nuevo", "", "closed"} {
		_, err := ParsePipelineStage(invalid)
		require.Error(t, err, "literal %q should be rejected", invalid)
		assert.Contains(t, err.Error(), "unknown pipeline stage")
	}
}
