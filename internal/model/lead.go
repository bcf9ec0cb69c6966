package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// PipelineStage represents a lead's position in the sales pipeline.
type PipelineStage string

const (
	StageNew       PipelineStage = "new"
	StageContacted PipelineStage = "contacted"
	StageQualified PipelineStage = "qualified"
	StageWon       PipelineStage = "won"
	StageLost      PipelineStage = "lost"
)

// ParsePipelineStage converts a string into a PipelineStage. Unknown literals
// are rejected so a bad operator patch can never persist a stage no consumer
// switches on.
func ParsePipelineStage(s string) (PipelineStage, error) {
	switch PipelineStage(s) {
	case StageNew, StageContacted, StageQualified, StageWon, StageLost:
		return PipelineStage(s), nil
	default:
		return "", eris.Errorf("unknown pipeline stage: %q (valid: new, contacted, qualified, won, lost)", s)
	}
}

// Lead represents a prospective seller/buyer contact captured by the public
// intake forms. Name and Phone are always present; every optional field is
// stored as an explicit empty value rather than omitted.
type Lead struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email"`
	PropertyID    string        `json:"property_id"`
	Message       string        `json:"message"`
	Source        string        `json:"source"`
	OperationType string        `json:"operation_type"`
	Neighborhood  string        `json:"neighborhood"`
	PipelineStage PipelineStage `json:"pipeline_stage"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Stage  PipelineStage `json:"stage,omitempty"`
	Source string        `json:"source,omitempty"`
	Limit  int           `json:"limit,omitempty"`
	Offset int           `json:"offset,omitempty"`
}
