package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no analysis has the requested ID.
	ErrNotFound = fmt.Errorf("analysis not found: %w", sql.ErrNoRows)
	// ErrNotCompleted is returned when a result is requested for an analysis that has none.
	ErrNotCompleted = errors.New("analysis has not completed")
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Connection struct {
	*sql.DB
}

// NewConnection creates and initializes a new database connection with schema
func NewConnection(dbPath string) (*Connection, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
    CREATE TABLE IF NOT EXISTS analyses (
        id TEXT PRIMARY KEY,
        repo_path TEXT NOT NULL,
        repository_name TEXT NOT NULL,
        config TEXT NOT NULL,
        status TEXT NOT NULL, -- 'running', 'completed' ou 'failed'
        error TEXT NOT NULL DEFAULT '',
        total_findings INTEGER NOT NULL DEFAULT 0,
        result TEXT,
        created_at TEXT NOT NULL,
        completed_at TEXT
    );
    CREATE TABLE IF NOT EXISTS findings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        analysis_id TEXT NOT NULL,
        finding_id TEXT NOT NULL,
        file_path TEXT NOT NULL,
        algorithm TEXT NOT NULL,
        algorithm_type TEXT NOT NULL,
        confidence INTEGER NOT NULL,
        confidence_level TEXT NOT NULL,
        severity TEXT NOT NULL,
        line_number INTEGER NOT NULL,
        FOREIGN KEY(analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
    );
    CREATE INDEX IF NOT EXISTS idx_findings_analysis ON findings(analysis_id);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Connection{db}, nil
}

// ClearAllData removes all data from the database tables
func (c *Connection) ClearAllData() error {
	_, err := c.Exec("DELETE FROM findings; DELETE FROM analyses;")
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
}

// CreateAnalysis records a new analysis in the running state
func (c *Connection) CreateAnalysis(id string, cfg model.AnalysisConfig, createdAt time.Time) error {
	return insertAnalysis(c.DB, id, cfg, createdAt)
}

func insertAnalysis(ex execer, id string, cfg model.AnalysisConfig, createdAt time.Time) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, err = ex.Exec(
		"INSERT INTO analyses(id, repo_path, repository_name, config, status, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		id, cfg.RepoPath, model.RepositoryName(cfg.RepoPath), string(configJSON), string(model.StateRunning), createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// CompleteAnalysis stores the result of an analysis and its findings
func (c *Connection) CompleteAnalysis(id string, result *model.AnalysisResult, completedAt time.Time) error {
	tx, err := c.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := completeAnalysis(tx, id, result, completedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func completeAnalysis(ex execer, id string, result *model.AnalysisResult, completedAt time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	res, err := ex.Exec(
		"UPDATE analyses SET status = ?, result = ?, total_findings = ?, repository_name = ?, completed_at = ? WHERE id = ?",
		string(model.StateCompleted), string(resultJSON), result.Summary.TotalFindings, result.Summary.RepositoryName, completedAt.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	stmt, err := ex.Prepare("INSERT INTO findings(analysis_id, finding_id, file_path, algorithm, algorithm_type, confidence, confidence_level, severity, line_number) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range result.Findings {
		_, err := stmt.Exec(id, f.ID, f.FilePath, f.Algorithm, f.AlgorithmType, f.Confidence, string(f.ConfidenceLevel), string(f.Severity), f.LineNumber)
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.ID, err)
		}
	}
	return nil
}

// FailAnalysis marks an analysis as failed
func (c *Connection) FailAnalysis(id string, reason string, completedAt time.Time) error {
	res, err := c.Exec(
		"UPDATE analyses SET status = ?, error = ?, completed_at = ? WHERE id = ?",
		string(model.StateFailed), reason, completedAt.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportResult stores an already completed result under id, replacing any
// previous analysis with the same id. Either the whole import is stored or
// nothing changes.
func (c *Connection) ImportResult(id, repoPath string, result *model.AnalysisResult, at time.Time) error {
	tx, err := c.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM analyses WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to replace analysis: %w", err)
	}
	cfg := model.DefaultConfig()
	cfg.RepoPath = repoPath
	if err := insertAnalysis(tx, id, cfg, at); err != nil {
		return err
	}
	if err := completeAnalysis(tx, id, result, at); err != nil {
		return err
	}
	return tx.Commit()
}

const recordColumns = "id, repo_path, repository_name, config, status, error, total_findings, created_at, completed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.AnalysisRecord, error) {
	var (
		rec         model.AnalysisRecord
		status      string
		configJSON  string
		createdAt   string
		completedAt sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.RepoPath, &rec.RepositoryName, &configJSON, &status, &rec.Error, &rec.TotalFindings, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	rec.Status = model.RunState(status)

	if err := json.Unmarshal([]byte(configJSON), &rec.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config of analysis %s: %w", rec.ID, err)
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at of analysis %s: %w", rec.ID, err)
	}
	rec.CreatedAt = t

	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at of analysis %s: %w", rec.ID, err)
		}
		rec.CompletedAt = &t
	}
	return &rec, nil
}

// GetAnalysisRecord returns the stored metadata of one analysis
func (c *Connection) GetAnalysisRecord(id string) (*model.AnalysisRecord, error) {
	rec, err := scanRecord(c.QueryRow("SELECT "+recordColumns+" FROM analyses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAnalysisResult returns the stored result of a completed analysis
func (c *Connection) GetAnalysisResult(id string) (*model.AnalysisResult, error) {
	var resultJSON sql.NullString
	err := c.QueryRow("SELECT result FROM analyses WHERE id = ?", id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !resultJSON.Valid {
		return nil, ErrNotCompleted
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result of analysis %s: %w", id, err)
	}
	return &result, nil
}

// ListAnalyses returns the most recent analyses first, optionally restricted
// to one repository name
func (c *Connection) ListAnalyses(repository string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.Query(`
        SELECT `+recordColumns+`
        FROM analyses
        WHERE ? = '' OR repository_name = ?
        ORDER BY created_at DESC, id
        LIMIT ?
    `, repository, repository, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.AnalysisRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetDistinctRepositories returns every repository name with a stored analysis
func (c *Connection) GetDistinctRepositories() ([]string, error) {
	rows, err := c.Query("SELECT DISTINCT repository_name FROM analyses ORDER BY repository_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

type AlgorithmCount struct {
	Algorithm         string  `json:"algorithm"`
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"averageConfidence"`
	Critical          int     `json:"critical"`
}

// GetAlgorithmCounts aggregates the stored findings per algorithm, optionally
// restricted to one repository name
func (c *Connection) GetAlgorithmCounts(repository string) ([]AlgorithmCount, error) {
	rows, err := c.Query(`
        SELECT
            f.algorithm,
            COUNT(f.id),
            AVG(f.confidence),
            SUM(CASE WHEN f.severity = 'critical' THEN 1 ELSE 0 END)
        FROM findings f
        JOIN analyses a ON a.id = f.analysis_id
        WHERE ? = '' OR a.repository_name = ?
        GROUP BY f.algorithm
        ORDER BY COUNT(f.id) DESC, f.algorithm
    `, repository, repository)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []AlgorithmCount{}
	for rows.Next() {
		var ac AlgorithmCount
		if err := rows.Scan(&ac.Algorithm, &ac.Count, &ac.AverageConfidence, &ac.Critical); err != nil {
			return nil, err
		}
		counts = append(counts, ac)
	}
	return counts, rows.Err()
}
