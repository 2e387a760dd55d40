package parser

import (
	"path/filepath"
	"strings"
)

// Detection is the outcome of format detection for one file.
type Detection struct {
	Format Format

	// CSVHint classifies a bare CSV upload by its header keywords:
	// medications, vitals, or activity.
	CSVHint string
}

// detectRule is one entry of the ordered detection table. Rules are evaluated
// top-down; the first match wins.
type detectRule struct {
	ext      string
	contains []string // any-of filename substrings; empty matches all
	format   Format
}

var detectRules = []detectRule{
	{ext: ".zip", contains: []string{"samsung"}, format: FormatSamsungExport},
	{ext: ".zip", contains: []string{"fhir", "allpatientdata", "patient"}, format: FormatClinicalArchive},
	{ext: ".json", format: FormatClinicalBundle},
	{ext: ".csv", format: FormatGenericCSV},
	{ext: ".pdf", format: FormatLabDocument},
}

// Detect inspects a file's name (and, for CSVs, its header row) and picks the
// matching format. Returns UnsupportedFormatError when no rule matches.
func Detect(name string, content []byte) (Detection, error) {
	lower := strings.ToLower(name)
	ext := filepath.Ext(lower)

	for _, rule := range detectRules {
		if ext != rule.ext {
			continue
		}
		if len(rule.contains) > 0 && !containsAny(lower, rule.contains) {
			continue
		}
		det := Detection{Format: rule.format}
		if rule.format == FormatGenericCSV {
			det.CSVHint = classifyCSVHeader(content)
		}
		return det, nil
	}

	return Detection{}, UnsupportedFormatError{Name: name}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// classifyCSVHeader picks a record type for a bare CSV from its header
// keywords.
func classifyCSVHeader(content []byte) string {
	header := firstLine(content)
	switch {
	case strings.Contains(header, "medication"), strings.Contains(header, "drug"):
		return "medications"
	case strings.Contains(header, "weight"), strings.Contains(header, "bp"):
		return "vitals"
	default:
		return "activity"
	}
}

func firstLine(content []byte) string {
	s := string(content)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.ToLower(strings.TrimSpace(s))
}
