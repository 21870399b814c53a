// Package generator fabricates analysis results for the dashboard. No source
// code is read: every finding and statistic is drawn from a random source over
// the fixed catalogs in the model package.
package generator

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

// Ranges used when drawing values, inclusive on both ends.
const (
	minFindings = 10
	maxFindings = 59
	minFiles    = 20
	maxFiles    = 119
	maxLine     = 200
)

var sourceDirs = []string{"utils", "crypto", "auth", "security"}

// Generator produces mock analysis results.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock func() time.Time
}

// New returns a generator seeded from the runtime's random source.
func New() *Generator {
	return &Generator{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock: time.Now,
	}
}

// NewSeeded returns a generator whose output depends only on seed and the clock.
func NewSeeded(seed uint64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		clock: time.Now,
	}
}

// WithClock replaces the clock used for the analysis date.
func (g *Generator) WithClock(clock func() time.Time) *Generator {
	g.clock = clock
	return g
}

// between draws an integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

// Generate builds a complete result for cfg. Only the repository path is
// read from the configuration; the scan toggles and threshold are recorded by
// callers but do not shape the generated data.
func (g *Generator) Generate(cfg model.AnalysisConfig) (*model.AnalysisResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	findingsCount := g.between(minFindings, maxFindings)
	filesCount := g.between(minFiles, maxFiles)

	findings := make([]model.Finding, 0, findingsCount)
	for i := 0; i < findingsCount; i++ {
		findings = append(findings, g.finding(i))
	}

	libraryStats := make([]model.LibraryStatistic, 0, len(model.Libraries))
	for _, lib := range model.Libraries {
		libraryStats = append(libraryStats, model.LibraryStatistic{
			Library:    lib,
			Count:      g.between(1, 15),
			Percentage: g.between(5, 29),
			Confidence: g.pick(model.LibraryConfidences),
		})
	}

	algorithmStats := make([]model.AlgorithmStatistic, 0, len(model.Algorithms))
	for _, alg := range model.Algorithms {
		algorithmStats = append(algorithmStats, model.AlgorithmStatistic{
			Algorithm:         alg,
			Count:             g.between(1, 10),
			Percentage:        g.between(5, 24),
			AverageConfidence: g.between(70, 99),
		})
	}

	typeStats := make([]model.AlgorithmTypeStatistic, 0, len(model.AlgorithmTypes))
	for _, typ := range model.AlgorithmTypes {
		n := g.between(2, 5)
		algorithms := make([]string, n)
		copy(algorithms, model.Algorithms[:n])
		typeStats = append(typeStats, model.AlgorithmTypeStatistic{
			Type:       typ,
			Count:      g.between(2, 9),
			Percentage: g.between(10, 34),
			Algorithms: algorithms,
		})
	}

	summary := model.SummaryMetrics{
		TotalFindings:  len(findings),
		FilesAnalyzed:  filesCount,
		RepositoryName: model.RepositoryName(cfg.RepoPath),
		AnalysisDate:   g.clock().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ScanDuration:   fmt.Sprintf("%dm %ds", g.between(1, 5), g.between(0, 59)),
	}

	jsonText, err := rawJSON(summary, findings, libraryStats, algorithmStats)
	if err != nil {
		return nil, err
	}
	csvText, err := rawCSV(findings)
	if err != nil {
		return nil, err
	}

	return &model.AnalysisResult{
		Summary:            summary,
		LibraryStats:       libraryStats,
		AlgorithmStats:     algorithmStats,
		AlgorithmTypeStats: typeStats,
		Findings:           findings,
		RawData: model.RawData{
			JSON: jsonText,
			CSV:  csvText,
		},
	}, nil
}

func (g *Generator) finding(i int) model.Finding {
	algorithm := g.pick(model.Algorithms)
	algorithmType := g.pick(model.AlgorithmTypes)
	confidence := g.between(model.MinFindingConfidence, model.MaxFindingConfidence)
	lower := strings.ToLower(algorithm)

	filePath := fmt.Sprintf("src/%s/%s_%d.py", g.pick(sourceDirs), lower, g.rng.IntN(10))
	snippet := fmt.Sprintf("def %s_encrypt(data, key):\n    cipher = %s(key)\n    return cipher.encrypt(data)", lower, algorithm)
	description := fmt.Sprintf("%s implementation using %s algorithm detected", algorithmType, algorithm)

	return model.NewFinding(
		fmt.Sprintf("finding-%d", i),
		filePath,
		algorithm,
		algorithmType,
		confidence,
		g.between(1, maxLine),
		description,
		snippet,
	)
}

func rawJSON(summary model.SummaryMetrics, findings []model.Finding, libraryStats []model.LibraryStatistic, algorithmStats []model.AlgorithmStatistic) (string, error) {
	payload := struct {
		Summary        model.SummaryMetrics       `json:"summary"`
		Findings       []model.Finding            `json:"findings"`
		LibraryStats   []model.LibraryStatistic   `json:"libraryStats"`
		AlgorithmStats []model.AlgorithmStatistic `json:"algorithmStats"`
	}{summary, findings, libraryStats, algorithmStats}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal raw JSON: %w", err)
	}
	return string(data), nil
}
