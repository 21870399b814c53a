package normalized

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/export"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/generator"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

func generated(t *testing.T, seed uint64, repo string) *model.AnalysisResult {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.RepoPath = repo
	result, err := generator.NewSeeded(seed).Generate(cfg)
	require.NoError(t, err)
	return result
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestParseSingleResult(t *testing.T) {
	result := generated(t, 1, "acme/widget")
	data, err := model.ResultToJSON(result)
	require.NoError(t, err)

	results, err := Parse(writeFile(t, data))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, result, results[0])
}

func TestParseDetailedExport(t *testing.T) {
	result := generated(t, 2, "acme/widget")
	doc, err := export.Render(result, export.KindDetailed, time.Now())
	require.NoError(t, err)

	results, err := ParseBytes(doc.Body)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, result.Summary, results[0].Summary)
	assert.Equal(t, result.Findings, results[0].Findings)
}

func TestParseToMapGroupsByRepository(t *testing.T) {
	all := []*model.AnalysisResult{
		generated(t, 1, "acme/widget"),
		generated(t, 2, "acme/gadget"),
		generated(t, 3, "acme/widget"),
	}
	data, err := json.Marshal(all)
	require.NoError(t, err)

	grouped, err := ParseToMap(writeFile(t, data))
	require.NoError(t, err)
	assert.Len(t, grouped["widget"], 2)
	assert.Len(t, grouped["gadget"], 1)
}

func TestParseRejectsInvalidContent(t *testing.T) {
	mismatched := generated(t, 4, "widget")
	mismatched.Summary.TotalFindings++
	data, err := json.Marshal(mismatched)
	require.NoError(t, err)

	tamper := func(edit func(f *model.Finding)) string {
		r := generated(t, 5, "widget")
		edit(&r.Findings[0])
		data, err := json.Marshal(r)
		require.NoError(t, err)
		return string(data)
	}

	cases := map[string]string{
		"level disagrees with confidence": tamper(func(f *model.Finding) {
			f.Confidence = 95
			f.ConfidenceLevel = model.ConfidenceLow
		}),
		"severity disagrees with confidence": tamper(func(f *model.Finding) {
			f.Confidence = 95
			f.ConfidenceLevel = model.ConfidenceHigh
			f.Severity = model.SeverityInfo
		}),
		"line number zero":  tamper(func(f *model.Finding) { f.LineNumber = 0 }),
		"unknown algorithm": tamper(func(f *model.Finding) { f.Algorithm = "ROT13" }),

		"empty":              "  ",
		"not json":           "findings,severity",
		"missing repository": `{"summary":{"totalFindings":0},"findings":[]}`,
		"null entry":         `[null]`,
		"count mismatch":     string(data),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBytes([]byte(content))
			assert.Error(t, err)
		})
	}

	_, err = Parse(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
