package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/generator"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

var exportTime = time.Date(2026, 10, 18, 14, 5, 9, 0, time.UTC)

func generated(t *testing.T, repo string) *model.AnalysisResult {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.RepoPath = repo
	result, err := generator.NewSeeded(9).Generate(cfg)
	require.NoError(t, err)
	return result
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("xml")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	result := generated(t, "https://github.com/acme/my-widget.v2")

	assert.Equal(t, "my_widget_v2_summary_2026-10-18.json", FileName(result, KindSummary, exportTime))
	assert.Equal(t, "my_widget_v2_detailed_2026-10-18.json", FileName(result, KindDetailed, exportTime))
	assert.Equal(t, "my_widget_v2_findings_2026-10-18.csv", FileName(result, KindCSV, exportTime))
	assert.Equal(t, "my_widget_v2_raw_2026-10-18.json", FileName(result, KindRaw, exportTime))
}

func TestRenderSummary(t *testing.T) {
	result := generated(t, "https://github.com/acme/widget")

	doc, err := Render(result, KindSummary, exportTime)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, doc.ContentType)

	var parsed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Body, &parsed))
	for _, key := range []string{"analysis_summary", "library_statistics", "algorithm_statistics", "algorithm_type_statistics", "total_findings", "findings_by_severity", "export_timestamp"} {
		assert.Contains(t, parsed, key)
	}

	var report SummaryReport
	require.NoError(t, json.Unmarshal(doc.Body, &report))
	assert.Equal(t, len(result.Findings), report.TotalFindings)
	assert.Equal(t, report.TotalFindings, report.FindingsBySeverity.Total())
	assert.Equal(t, "2026-10-18T14:05:09.000Z", report.ExportTimestamp)
}

func TestRenderDetailed(t *testing.T) {
	result := generated(t, "https://github.com/acme/widget")

	doc, err := Render(result, KindDetailed, exportTime)
	require.NoError(t, err)

	var parsed struct {
		model.AnalysisResult
		ExportTimestamp string `json:"export_timestamp"`
	}
	require.NoError(t, json.Unmarshal(doc.Body, &parsed))
	assert.Equal(t, result.Summary, parsed.Summary)
	assert.Len(t, parsed.Findings, len(result.Findings))
	assert.Equal(t, result.RawData, parsed.RawData)
	assert.NotEmpty(t, parsed.ExportTimestamp)
}

func TestRenderRawIsVerbatim(t *testing.T) {
	result := generated(t, "widget")

	doc, err := Render(result, KindRaw, exportTime)
	require.NoError(t, err)
	assert.Equal(t, result.RawData.JSON, string(doc.Body))
}

func TestRenderCSV(t *testing.T) {
	result := generated(t, "widget")

	doc, err := Render(result, KindCSV, exportTime)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCSV, doc.ContentType)

	lines := strings.Split(string(doc.Body), "\n")
	require.Len(t, lines, len(result.Findings)+1)
	assert.Equal(t, "File Path,Algorithm,Algorithm Type,Confidence,Confidence Level,Severity,Line Number,Description", lines[0])

	f := result.Findings[0]
	assert.True(t, strings.HasPrefix(lines[1], f.FilePath+","+f.Algorithm+","))
	assert.True(t, strings.HasSuffix(lines[1], `,"`+f.Description+`"`))
}

func TestFindingsCSVEscaping(t *testing.T) {
	all := []model.Finding{
		model.NewFinding("finding-0", "src/a,b.py", "AES", "Symmetric Encryption", 70, 1, `the "AES" call`, ""),
	}

	lines := strings.Split(FindingsCSV(all), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"src/a,b.py",AES,Symmetric Encryption,70,low,info,1,"the ""AES"" call"`, lines[1])
}

func TestRenderDoesNotMutateResult(t *testing.T) {
	result := generated(t, "widget")
	before, err := model.ResultToJSON(result)
	require.NoError(t, err)

	for _, k := range Kinds {
		_, err := Render(result, k, exportTime)
		require.NoError(t, err)
	}

	after, err := model.ResultToJSON(result)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
