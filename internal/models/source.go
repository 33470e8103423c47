// Package models defines the core domain entities: data sources, agent state, decisions, and price points.
package models

import (
	"errors"
	"fmt"
	"time"
)

// SourceStatus is the health of a monitored feed.
type SourceStatus string

const (
	StatusActive     SourceStatus = "active"
	StatusStale      SourceStatus = "stale"
	StatusOffline    SourceStatus = "offline"
	StatusRefreshing SourceStatus = "refreshing"
)

// ParseSourceStatus converts s into a SourceStatus.
func ParseSourceStatus(s string) (SourceStatus, error) {
	switch st := SourceStatus(s); st {
	case StatusActive, StatusStale, StatusOffline, StatusRefreshing:
		return st, nil
	}
	return "", fmt.Errorf("unknown source status %q", s)
}

// DataSource is one monitored feed. PriorityScore is derived from the three
// component scores and must be refreshed with Recompute after any of them change.
type DataSource struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Icon             string       `json:"icon"`
	QualityScore     float64      `json:"qualityScore"`
	FreshnessScore   float64      `json:"freshnessScore"`
	ReliabilityScore float64      `json:"reliabilityScore"`
	PriorityScore    float64      `json:"priorityScore"`
	Status           SourceStatus `json:"status"`
	CallsUsed        int          `json:"callsUsed"`
	CallsAllocated   int          `json:"callsAllocated"`
	LastUpdate       time.Time    `json:"lastUpdate"`
	IsSelected       bool         `json:"isSelected"`
	SkipReason       string       `json:"skipReason,omitempty"`
}

// Priority weights.
const (
	QualityWeight     = 0.5
	FreshnessWeight   = 0.3
	ReliabilityWeight = 0.2
)

// Priority returns the weighted composite of the source's component scores.
// Inputs are not clamped.
func Priority(quality, freshness, reliability float64) float64 {
	return QualityWeight*quality + FreshnessWeight*freshness + ReliabilityWeight*reliability
}

// Recompute refreshes PriorityScore from the current component scores.
func (s *DataSource) Recompute() {
	s.PriorityScore = Priority(s.QualityScore, s.FreshnessScore, s.ReliabilityScore)
}

// Age returns how long ago the source was last collected, relative to now.
func (s *DataSource) Age(now time.Time) time.Duration {
	return now.Sub(s.LastUpdate)
}

// MarkSkipped records a skip for the current cycle.
func (s *DataSource) MarkSkipped(reason string) {
	s.IsSelected = false
	s.SkipReason = reason
}

// MarkCollected records a successful collection at now with the new quality score.
func (s *DataSource) MarkCollected(now time.Time, quality float64) {
	s.QualityScore = quality
	s.FreshnessScore = 100
	s.LastUpdate = now
	s.Status = StatusActive
	s.IsSelected = true
	s.SkipReason = ""
	s.CallsUsed++
	s.Recompute()
}

// Validate checks source field constraints.
func (s *DataSource) Validate() error {
	if s.ID == "" {
		return errors.New("source ID must not be empty")
	}
	if s.Name == "" {
		return errors.New("source name must not be empty")
	}
	for name, v := range map[string]float64{
		"quality":     s.QualityScore,
		"freshness":   s.FreshnessScore,
		"reliability": s.ReliabilityScore,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s score must be between 0 and 100", name)
		}
	}
	if _, err := ParseSourceStatus(string(s.Status)); err != nil {
		return err
	}
	if s.CallsUsed < 0 {
		return errors.New("calls used must not be negative")
	}
	if s.CallsAllocated < 0 {
		return errors.New("calls allocated must not be negative")
	}
	if s.IsSelected && s.SkipReason != "" {
		return errors.New("a source cannot be both selected and skipped")
	}
	return nil
}
