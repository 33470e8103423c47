package agent

import (
	"time"

	"github.com/rewired-gh/silveragent/internal/models"
)

// InitialSources returns the fixed starting roster. Yahoo starts 40s old and stale.
func InitialSources(now time.Time) []models.DataSource {
	sources := []models.DataSource{
		{
			ID:               "reuters",
			Name:             "Reuters API",
			Icon:             "📰",
			QualityScore:     92,
			FreshnessScore:   95,
			ReliabilityScore: 98,
			LastUpdate:       now,
			Status:           models.StatusActive,
			CallsAllocated:   350,
		},
		{
			ID:               "lbma",
			Name:             "LBMA Feed",
			Icon:             "🏦",
			QualityScore:     89,
			FreshnessScore:   88,
			ReliabilityScore: 95,
			LastUpdate:       now,
			Status:           models.StatusActive,
			CallsAllocated:   280,
		},
		{
			ID:               "metals",
			Name:             "MetalsAPI",
			Icon:             "⚙️",
			QualityScore:     85,
			FreshnessScore:   82,
			ReliabilityScore: 88,
			LastUpdate:       now,
			Status:           models.StatusActive,
			CallsAllocated:   220,
		},
		{
			ID:               "yahoo",
			Name:             "Yahoo Finance",
			Icon:             "📊",
			QualityScore:     78,
			FreshnessScore:   75,
			ReliabilityScore: 82,
			LastUpdate:       now.Add(-40 * time.Second),
			Status:           models.StatusStale,
			CallsAllocated:   150,
		},
	}
	for i := range sources {
		sources[i].Recompute()
	}
	return sources
}
