package model

import "time"

// RunState is the lifecycle state of a recorded analysis
type RunState string

const (
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// AnalysisStatus reports how far a recorded analysis has progressed
type AnalysisStatus struct {
	ID       string   `json:"id"`
	Status   RunState `json:"status"`
	Progress int      `json:"progress"`
	Error    string   `json:"error,omitempty"`
}

// AnalysisRecord is a stored analysis as listed in the history
type AnalysisRecord struct {
	ID             string         `json:"id"`
	RepoPath       string         `json:"repoPath"`
	RepositoryName string         `json:"repositoryName"`
	Config         AnalysisConfig `json:"config"`
	Status         RunState       `json:"status"`
	TotalFindings  int            `json:"totalFindings"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
}
