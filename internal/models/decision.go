package models

import (
	"fmt"
	"time"
)

// DecisionType classifies an entry in the decision log.
type DecisionType string

const (
	DecisionCollect    DecisionType = "collect"
	DecisionSkip       DecisionType = "skip"
	DecisionReallocate DecisionType = "reallocate"
	DecisionStaleness  DecisionType = "staleness"
	DecisionBudget     DecisionType = "budget"
)

// ParseDecisionType converts s into a DecisionType.
func ParseDecisionType(s string) (DecisionType, error) {
	switch t := DecisionType(s); t {
	case DecisionCollect, DecisionSkip, DecisionReallocate, DecisionStaleness, DecisionBudget:
		return t, nil
	}
	return "", fmt.Errorf("unknown decision type %q", s)
}

// AgentDecision is an immutable decision log entry.
type AgentDecision struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Type           DecisionType `json:"type"`
	SourceID       string       `json:"sourceId,omitempty"`
	SourceName     string       `json:"sourceName,omitempty"`
	Reason         string       `json:"reason"`
	Details        string       `json:"details,omitempty"`
	ResourcesSaved int          `json:"resourcesSaved,omitempty"`
}
