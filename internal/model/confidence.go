package model

import (
	"errors"
	"fmt"
)

// ConfidenceLevel is the tier label derived from a confidence score
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Severity is the user-facing risk tier derived from a confidence score
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityWarning, SeverityInfo}

// Confidence tier boundaries, inclusive lower bounds.
const (
	MediumConfidenceFloor = 75
	HighConfidenceFloor   = 90
)

// ConfidenceLevelFor maps a confidence score to its tier.
func ConfidenceLevelFor(confidence int) ConfidenceLevel {
	switch {
	case confidence >= HighConfidenceFloor:
		return ConfidenceHigh
	case confidence >= MediumConfidenceFloor:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SeverityFor maps a confidence score to its severity.
func SeverityFor(confidence int) Severity {
	switch ConfidenceLevelFor(confidence) {
	case ConfidenceHigh:
		return SeverityCritical
	case ConfidenceMedium:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// ParseSeverity accepts the lowercase severity names.
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range Severities {
		if string(sev) == s {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// ThresholdLevel selects the minimum confidence shown to the user
type ThresholdLevel string

const (
	ThresholdLow    ThresholdLevel = "low"
	ThresholdMedium ThresholdLevel = "medium"
	ThresholdHigh   ThresholdLevel = "high"
	ThresholdCustom ThresholdLevel = "custom"
)

const (
	MinCustomThreshold     = 50
	MaxCustomThreshold     = 100
	DefaultCustomThreshold = 80
)

var (
	ErrNoScanEnabled    = errors.New("at least one scan option must be enabled")
	ErrInvalidThreshold = errors.New("invalid confidence threshold")
	ErrCustomOutOfRange = fmt.Errorf("custom threshold must be between %d and %d", MinCustomThreshold, MaxCustomThreshold)
)

// DefaultConfig returns the configuration a fresh dashboard starts with.
func DefaultConfig() AnalysisConfig {
	custom := DefaultCustomThreshold
	return AnalysisConfig{
		ScanLibraryImports:           true,
		ScanAlgorithmImplementations: true,
		ConfidenceThreshold:          ThresholdMedium,
		CustomThreshold:              &custom,
	}
}

// Validate checks the invariants a consumer enforces before requesting an
// analysis. The generator itself accepts any configuration.
func (c AnalysisConfig) Validate() error {
	if !c.ScanLibraryImports && !c.ScanAlgorithmImplementations {
		return ErrNoScanEnabled
	}
	switch c.ConfidenceThreshold {
	case ThresholdLow, ThresholdMedium, ThresholdHigh:
	case ThresholdCustom:
		if c.CustomThreshold != nil && (*c.CustomThreshold < MinCustomThreshold || *c.CustomThreshold > MaxCustomThreshold) {
			return ErrCustomOutOfRange
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidThreshold, c.ConfidenceThreshold)
	}
	return nil
}

// MinConfidence is the numeric floor for the configured threshold level.
func (c AnalysisConfig) MinConfidence() int {
	switch c.ConfidenceThreshold {
	case ThresholdHigh:
		return HighConfidenceFloor
	case ThresholdMedium:
		return MediumConfidenceFloor
	case ThresholdCustom:
		if c.CustomThreshold != nil {
			return *c.CustomThreshold
		}
		return DefaultCustomThreshold
	default:
		return MinFindingConfidence
	}
}
