package model

// StatsReport aggregates every completed analysis in the history
type StatsReport struct {
	Overall      OverallStats              `json:"overall"`
	Algorithms   map[string]AlgorithmUsage `json:"algorithms"`
	Repositories []RepositoryStats         `json:"repositories"`
}

// OverallStats represents the totals across all repositories
type OverallStats struct {
	TotalRepositories int `json:"totalRepositories"`
	TotalAnalyses     int `json:"totalAnalyses"`
	TotalFindings     int `json:"totalFindings"`
}

// RepositoryStats represents the aggregated findings of one repository
type RepositoryStats struct {
	RepositoryName string                    `json:"repositoryName"`
	Analyses       int                       `json:"analyses"`
	TotalFindings  int                       `json:"totalFindings"`
	Algorithms     map[string]AlgorithmUsage `json:"algorithms"`
}

// AlgorithmUsage represents how often an algorithm was found
type AlgorithmUsage struct {
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"averageConfidence"`
	Critical          int     `json:"critical"`
}
