// Package journal mirrors the agent's decision log into SQLite so it can be
// queried. The table is row-capped like the in-memory log, and the default
// in-memory database lives only as long as the process.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/silveragent/internal/models"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Journal wraps a SQLite database holding recent decisions.
type Journal struct {
	db           *sql.DB
	maxDecisions int
}

// New opens or creates the journal at dbPath. An empty dbPath means MemoryDSN.
func New(maxDecisions int, dbPath string) (*Journal, error) {
	if dbPath == "" {
		dbPath = MemoryDSN
	}
	if dbPath != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1) // in-memory databases are per connection
	if dbPath != MemoryDSN {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set WAL mode: %w", err)
		}
	}
	j := &Journal{db: db, maxDecisions: maxDecisions}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			ts              INTEGER NOT NULL,
			type            TEXT NOT NULL,
			source_id       TEXT,
			source_name     TEXT,
			reason          TEXT NOT NULL,
			details         TEXT,
			resources_saved INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_type ON decisions(type)`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record appends d and drops the oldest rows beyond the cap.
func (j *Journal) Record(d models.AgentDecision) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = sq.Insert("decisions").
		Columns("id", "ts", "type", "source_id", "source_name", "reason", "details", "resources_saved").
		Values(d.ID, d.Timestamp.UnixNano(), string(d.Type), d.SourceID, d.SourceName, d.Reason, d.Details, d.ResourcesSaved).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	if err := j.rotate(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (j *Journal) rotate(runner sq.BaseRunner) error {
	_, err := sq.Delete("decisions").
		Where("seq NOT IN (SELECT seq FROM decisions ORDER BY seq DESC LIMIT ?)", j.maxDecisions).
		RunWith(runner).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to enforce decision cap: %w", err)
	}
	return nil
}

// Recent returns up to n decisions, newest first.
func (j *Journal) Recent(n int) ([]models.AgentDecision, error) {
	if n <= 0 {
		return []models.AgentDecision{}, nil
	}
	rows, err := sq.Select(decisionCols...).
		From("decisions").
		OrderBy("seq DESC").
		Limit(uint64(n)).
		RunWith(j.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []models.AgentDecision{}
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

// ByType returns up to n decisions of type t, newest first.
func (j *Journal) ByType(t models.DecisionType, n int) ([]models.AgentDecision, error) {
	if n <= 0 {
		return []models.AgentDecision{}, nil
	}
	rows, err := sq.Select(decisionCols...).
		From("decisions").
		Where(sq.Eq{"type": string(t)}).
		OrderBy("seq DESC").
		Limit(uint64(n)).
		RunWith(j.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []models.AgentDecision{}
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

// Stats summarises the journal contents.
type Stats struct {
	Total          int                         `json:"total"`
	ByType         map[models.DecisionType]int `json:"byType"`
	ResourcesSaved int                         `json:"resourcesSaved"`
}

// CountByType counts the retained decisions per type.
func (j *Journal) CountByType() (Stats, error) {
	rows, err := sq.Select("type", "COUNT(*)", "COALESCE(SUM(resources_saved), 0)").
		From("decisions").
		GroupBy("type").
		RunWith(j.db).
		Query()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByType: make(map[models.DecisionType]int)}
	for rows.Next() {
		var typ string
		var count, saved int
		if err := rows.Scan(&typ, &count, &saved); err != nil {
			return Stats{}, fmt.Errorf("failed to scan count: %w", err)
		}
		stats.ByType[models.DecisionType(typ)] = count
		stats.Total += count
		stats.ResourcesSaved += saved
	}
	return stats, rows.Err()
}

var decisionCols = []string{"id", "ts", "type", "source_id", "source_name", "reason", "details", "resources_saved"}

func scanDecision(scan func(...any) error) (*models.AgentDecision, error) {
	var d models.AgentDecision
	var tsNano int64
	var typ string
	var sourceID, sourceName, details sql.NullString
	err := scan(&d.ID, &tsNano, &typ, &sourceID, &sourceName, &d.Reason, &details, &d.ResourcesSaved)
	if err != nil {
		return nil, err
	}
	d.Type = models.DecisionType(typ)
	d.Timestamp = time.Unix(0, tsNano)
	d.SourceID = sourceID.String
	d.SourceName = sourceName.String
	d.Details = details.String
	return &d, nil
}
