package db

import (
	"math"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

type repositoryTotals struct {
	name     string
	analyses int
	findings int
}

// BuildStatsReport aggregates the completed analyses per repository and
// per algorithm
func (c *Connection) BuildStatsReport() (*model.StatsReport, error) {
	rows, err := c.Query(`
        SELECT repository_name, COUNT(id), SUM(total_findings)
        FROM analyses
        WHERE status = ?
        GROUP BY repository_name
        ORDER BY repository_name
    `, string(model.StateCompleted))
	if err != nil {
		return nil, err
	}

	var totals []repositoryTotals
	for rows.Next() {
		var t repositoryTotals
		if err := rows.Scan(&t.name, &t.analyses, &t.findings); err != nil {
			rows.Close()
			return nil, err
		}
		totals = append(totals, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report := &model.StatsReport{Repositories: []model.RepositoryStats{}}
	for _, t := range totals {
		counts, err := c.GetAlgorithmCounts(t.name)
		if err != nil {
			return nil, err
		}
		report.Repositories = append(report.Repositories, model.RepositoryStats{
			RepositoryName: t.name,
			Analyses:       t.analyses,
			TotalFindings:  t.findings,
			Algorithms:     usageByAlgorithm(counts),
		})
		report.Overall.TotalAnalyses += t.analyses
		report.Overall.TotalFindings += t.findings
	}
	report.Overall.TotalRepositories = len(totals)

	counts, err := c.GetAlgorithmCounts("")
	if err != nil {
		return nil, err
	}
	report.Algorithms = usageByAlgorithm(counts)

	return report, nil
}

func usageByAlgorithm(counts []AlgorithmCount) map[string]model.AlgorithmUsage {
	usage := make(map[string]model.AlgorithmUsage, len(counts))
	for _, ac := range counts {
		usage[ac.Algorithm] = model.AlgorithmUsage{
			Count:             ac.Count,
			AverageConfidence: math.Round(ac.AverageConfidence*100) / 100,
			Critical:          ac.Critical,
		}
	}
	return usage
}
