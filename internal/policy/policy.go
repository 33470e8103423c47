// Package policy holds the agent's pure decision rules: source scoring, the
// skip/collect policy, budget allocation, and the adaptive collection interval.
package policy

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rewired-gh/silveragent/internal/models"
	"github.com/rewired-gh/silveragent/internal/pricing"
)

const (
	// StalenessThreshold is the age beyond which a source's data is stale.
	StalenessThreshold = 30 * time.Second

	MinQuality            = 60.0
	FreshWindow           = 5 * time.Second
	ConservativeThreshold = 80.0
)

// PriorityScore returns 0.5*quality + 0.3*freshness + 0.2*reliability.
func PriorityScore(s models.DataSource) float64 {
	return models.Priority(s.QualityScore, s.FreshnessScore, s.ReliabilityScore)
}

// SkipDecision is the outcome of ShouldSkip.
type SkipDecision struct {
	Skip   bool
	Reason string
}

// ShouldSkip decides whether to collect from s this cycle. Rules are checked
// in order and the first match supplies the reason.
func ShouldSkip(s models.DataSource, state models.AgentState, now time.Time) SkipDecision {
	if s.Status == models.StatusOffline {
		return SkipDecision{Skip: true, Reason: "Source is offline"}
	}
	if s.QualityScore < MinQuality {
		return SkipDecision{Skip: true, Reason: fmt.Sprintf("Low quality signal (%s%% < %.0f%% threshold)", belowScore(s.QualityScore), MinQuality)}
	}
	if s.CallsUsed >= s.CallsAllocated {
		return SkipDecision{Skip: true, Reason: fmt.Sprintf("Budget exhausted (%d/%d calls used)", s.CallsUsed, s.CallsAllocated)}
	}
	if age := s.Age(now); age < FreshWindow && s.Status == models.StatusActive {
		return SkipDecision{Skip: true, Reason: fmt.Sprintf("Data still fresh (%.0fs old)", math.Round(age.Seconds()))}
	}
	if state.Mode == models.ModeConservative && s.PriorityScore < ConservativeThreshold {
		return SkipDecision{Skip: true, Reason: fmt.Sprintf("Below priority threshold in conservative mode (%s < %.0f)", belowScore(s.PriorityScore), ConservativeThreshold)}
	}
	return SkipDecision{}
}

// belowScore formats a score that failed a threshold check. It truncates to
// one decimal so the printed value never rounds up to the threshold.
func belowScore(v float64) string {
	return strconv.FormatFloat(math.Floor(v*10+1e-9)/10, 'f', -1, 64)
}

// AllocateBudget splits totalBudget across non-offline sources in proportion
// to priority score. Offline sources are absent from the result. Rounding
// drift is not corrected. When the included sources have no priority at all
// the result is empty.
func AllocateBudget(sources []models.DataSource, totalBudget int) map[string]int {
	var totalPriority float64
	for _, s := range sources {
		if s.Status != models.StatusOffline {
			totalPriority += s.PriorityScore
		}
	}

	allocations := make(map[string]int, len(sources))
	if totalPriority <= 0 {
		return allocations
	}
	for _, s := range sources {
		if s.Status == models.StatusOffline {
			continue
		}
		allocations[s.ID] = int(math.Round(float64(totalBudget) * s.PriorityScore / totalPriority))
	}
	return allocations
}

// CollectionInterval picks the delay until the next cycle for volatility v.
func CollectionInterval(v models.Volatility, r pricing.Rand) time.Duration {
	var lo, hi float64
	switch v {
	case models.VolatilityHigh:
		lo, hi = 5, 10
	case models.VolatilityMedium:
		lo, hi = 10, 20
	default:
		lo, hi = 20, 35
	}
	secs := pricing.Uniform(r, lo, hi)
	return time.Duration(secs * float64(time.Second))
}

// Freshness derives a freshness score from data age: 100 minus two points
// per second, floored at zero.
func Freshness(age time.Duration) float64 {
	return math.Max(0, 100-age.Seconds()*2)
}

// IsStale reports whether data of the given age is past StalenessThreshold.
func IsStale(age time.Duration) bool {
	return age > StalenessThreshold
}
