package importer

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/usecase-tracker-api/pkg/errors"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

// Validate rejects sheets without headers or rows before any processing.
func Validate(s sheet.RawSheet) error {
	if s.Headers == nil || s.Rows == nil {
		return appErrors.ErrImportInput
	}
	return nil
}

// AnalyzeLocally runs the keyword pipeline over s.
func AnalyzeLocally(s sheet.RawSheet) Result {
	mapping := ClassifyHeaders(s.Headers)
	policy := DetectPassFail(s.Headers)
	return buildResult(s, mapping, policy, SourceLocal, nil, nil, localConfidence(mapping))
}

func localConfidence(mapping ColumnMapping) Confidence {
	if mapping.Has(FieldName) {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// buildResult normalises the rows with mapping and policy and assembles the
// analysis. Extra feedback and warnings are placed ahead of the derived ones.
func buildResult(s sheet.RawSheet, mapping ColumnMapping, policy StatusPolicy, source Source, feedback, warnings []string, confidence Confidence) Result {
	mapped := NormalizeRows(s.Headers, s.Rows, mapping, policy)

	analysis := Analysis{
		ColumnMapping: mapping,
		StatusMapping: policy,
		Feedback:      append(append([]string{}, feedback...), describeMapping(s.Headers, mapping, policy)...),
		Warnings:      append(append([]string{}, warnings...), mappingWarnings(s.Headers, mapping)...),
		ValidRowCount: len(mapped),
		SkippedRows:   len(s.Rows) - len(mapped),
		Confidence:    confidence,
	}
	if analysis.SkippedRows > 0 {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("%d row(s) skipped because they were empty or had no test case name", analysis.SkippedRows))
	}

	return Result{Analysis: analysis, MappedData: mapped, Source: source}
}

func describeMapping(headers []string, mapping ColumnMapping, policy StatusPolicy) []string {
	feedback := make([]string, 0, len(mapping)+1)
	for _, idx := range mapping.Indices() {
		feedback = append(feedback, fmt.Sprintf("Column %s mapped to %s", headerLabel(headers, idx), mapping[idx]))
	}

	switch {
	case policy.UsesPassFail():
		parts := make([]string, 0, 2)
		if policy.PassColumnIndex != nil {
			parts = append(parts, "pass: "+headerLabel(headers, *policy.PassColumnIndex))
		}
		if policy.FailColumnIndex != nil {
			parts = append(parts, "fail: "+headerLabel(headers, *policy.FailColumnIndex))
		}
		feedback = append(feedback, fmt.Sprintf("Status derived from pass/fail columns (%s)", strings.Join(parts, ", ")))
	case mapping.Has(FieldStatus):
		feedback = append(feedback, "Status read from the mapped status column")
	default:
		feedback = append(feedback, "No status column found; test cases default to PENDING")
	}
	return feedback
}

func mappingWarnings(headers []string, mapping ColumnMapping) []string {
	var warnings []string
	if !mapping.Has(FieldName) {
		warnings = append(warnings, "No column was identified as the test case name; rows cannot be imported without one")
	}

	byField := make(map[Field][]int)
	for _, idx := range mapping.Indices() {
		byField[mapping[idx]] = append(byField[mapping[idx]], idx)
	}
	for _, field := range Fields() {
		cols := byField[field]
		if len(cols) < 2 {
			continue
		}
		labels := make([]string, len(cols))
		for i, idx := range cols {
			labels[i] = headerLabel(headers, idx)
		}
		warnings = append(warnings, fmt.Sprintf("Columns %s all map to %s; later columns overwrite earlier ones",
			strings.Join(labels, ", "), field))
	}
	return warnings
}

func headerLabel(headers []string, idx int) string {
	if idx >= 0 && idx < len(headers) && strings.TrimSpace(headers[idx]) != "" {
		return fmt.Sprintf("%q (#%d)", strings.TrimSpace(headers[idx]), idx)
	}
	return fmt.Sprintf("#%d", idx)
}
