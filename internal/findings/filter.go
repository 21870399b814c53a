// Package findings derives read-only views over a result's findings. None of
// these functions modify their input.
package findings

import (
	"sort"
	"strings"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

// All matches every severity or algorithm in a Query.
const All = "all"

// Query selects findings. Empty fields and All match everything.
type Query struct {
	Search        string
	Severity      string
	Algorithm     string
	MinConfidence int
}

// Matches reports whether f satisfies every criterion of q.
func (q Query) Matches(f model.Finding) bool {
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(f.Algorithm), term) &&
			!strings.Contains(strings.ToLower(f.FilePath), term) &&
			!strings.Contains(strings.ToLower(f.Description), term) {
			return false
		}
	}
	if q.Severity != "" && q.Severity != All && string(f.Severity) != q.Severity {
		return false
	}
	if q.Algorithm != "" && q.Algorithm != All && f.Algorithm != q.Algorithm {
		return false
	}
	return f.Confidence >= q.MinConfidence
}

// Filter returns the findings matching q, in their original order.
func Filter(all []model.Finding, q Query) []model.Finding {
	out := make([]model.Finding, 0, len(all))
	for _, f := range all {
		if q.Matches(f) {
			out = append(out, f)
		}
	}
	return out
}

// UniqueAlgorithms returns the sorted distinct algorithm names in all.
func UniqueAlgorithms(all []model.Finding) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, f := range all {
		if _, ok := seen[f.Algorithm]; ok {
			continue
		}
		seen[f.Algorithm] = struct{}{}
		names = append(names, f.Algorithm)
	}
	sort.Strings(names)
	return names
}

// SeverityCounts is the number of findings per severity
type SeverityCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// Total is the number of findings counted.
func (c SeverityCounts) Total() int {
	return c.Critical + c.Warning + c.Info
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(all []model.Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range all {
		switch f.Severity {
		case model.SeverityCritical:
			c.Critical++
		case model.SeverityWarning:
			c.Warning++
		case model.SeverityInfo:
			c.Info++
		}
	}
	return c
}
