package models

import "fmt"

// Mode controls how eagerly the agent collects.
type Mode string

const (
	ModeAdaptive     Mode = "adaptive"
	ModeAggressive   Mode = "aggressive"
	ModeConservative Mode = "conservative"
)

// ParseMode converts s into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAdaptive, ModeAggressive, ModeConservative:
		return m, nil
	}
	return "", fmt.Errorf("unknown agent mode %q", s)
}

// Volatility is the discrete classification of recent price variability.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// AgentState is the process-wide control and telemetry record.
// Counters only ever grow for the lifetime of the process.
type AgentState struct {
	Mode             Mode       `json:"mode"`
	IsActive         bool       `json:"isActive"`
	Volatility       Volatility `json:"volatility"`
	NextCollectionIn int        `json:"nextCollectionIn"`
	TotalBudget      int        `json:"totalBudget"`
	BudgetUsed       int        `json:"budgetUsed"`
	ResourcesSaved   int        `json:"resourcesSaved"`
	CollectionsToday int        `json:"collectionsToday"`
	SkippedToday     int        `json:"skippedToday"`
}
