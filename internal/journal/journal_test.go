package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/silveragent/internal/models"
)

func newTestJournal(t *testing.T, limit int) *Journal {
	t.Helper()
	j, err := New(limit, MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create test journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func testDecision(i int, typ models.DecisionType, ts time.Time) models.AgentDecision {
	return models.AgentDecision{
		ID:             fmt.Sprintf("d-%d", i),
		Timestamp:      ts,
		Type:           typ,
		SourceID:       "lbma",
		SourceName:     "LBMA Feed",
		Reason:         fmt.Sprintf("reason %d", i),
		ResourcesSaved: 1,
	}
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := newTestJournal(t, 10)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := j.Record(testDecision(i, models.DecisionSkip, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d decisions, want 3", len(got))
	}
	if got[0].ID != "d-2" || got[2].ID != "d-0" {
		t.Errorf("expected newest first, got %s..%s", got[0].ID, got[2].ID)
	}
	if !got[0].Timestamp.Equal(now.Add(2*time.Second)) {
		t.Errorf("timestamp not round-tripped: %v", got[0].Timestamp)
	}
	if got[0].SourceName != "LBMA Feed" || got[0].Type != models.DecisionSkip {
		t.Errorf("fields not round-tripped: %+v", got[0])
	}
}

func TestJournal_Rotation(t *testing.T) {
	j := newTestJournal(t, 5)
	now := time.Now()
	for i := 0; i < 12; i++ {
		if err := j.Record(testDecision(i, models.DecisionCollect, now)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := j.Recent(100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d decisions after rotation, want 5", len(got))
	}
	if got[0].ID != "d-11" || got[4].ID != "d-7" {
		t.Errorf("rotation kept wrong rows: %s..%s", got[0].ID, got[4].ID)
	}
}

func TestJournal_CountByType(t *testing.T) {
	j := newTestJournal(t, 100)
	now := time.Now()
	types := []models.DecisionType{
		models.DecisionSkip, models.DecisionSkip, models.DecisionCollect, models.DecisionStaleness,
	}
	for i, typ := range types {
		if err := j.Record(testDecision(i, typ, now)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	stats, err := j.CountByType()
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if stats.Total != 4 || stats.ByType[models.DecisionSkip] != 2 || stats.ByType[models.DecisionCollect] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ResourcesSaved != 4 {
		t.Errorf("resources saved = %d, want 4", stats.ResourcesSaved)
	}

	skips, err := j.ByType(models.DecisionSkip, 10)
	if err != nil {
		t.Fatalf("ByType: %v", err)
	}
	if len(skips) != 2 || skips[0].ID != "d-1" {
		t.Errorf("unexpected skips: %+v", skips)
	}
}

func TestJournal_DuplicateID(t *testing.T) {
	j := newTestJournal(t, 10)
	d := testDecision(1, models.DecisionBudget, time.Now())
	if err := j.Record(d); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Record(d); err == nil {
		t.Error("expected error recording a duplicate decision ID")
	}
}

func TestJournal_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := New(10, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer j.Close()
	if err := j.Record(testDecision(1, models.DecisionCollect, time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := j.Recent(0)
	if err != nil || len(got) != 0 {
		t.Errorf("Recent(0) = %v, %v; want empty", got, err)
	}
}
