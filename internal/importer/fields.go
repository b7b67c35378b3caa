// Package importer maps spreadsheet-shaped input onto canonical test cases.
//
// The local pipeline is ClassifyHeaders, then DetectPassFail, then
// NormalizeRows. Analyzer optionally asks a remote completion model for a
// better mapping and falls back to the local pipeline on any failure.
package importer

import (
	"sort"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

// Field is a canonical test case attribute a column can map onto.
type Field string

const (
	FieldName           Field = "name"
	FieldDescription    Field = "description"
	FieldPriority       Field = "priority"
	FieldStatus         Field = "status"
	FieldTestCaseDocURL Field = "testCaseDocUrl"
	FieldTestResultURL  Field = "testResultUrl"
	FieldJiraURL        Field = "jiraUrl"
)

type fieldKeywords struct {
	field    Field
	keywords []string
}

// Declaration order decides ties: the first field with a matching keyword wins.
var keywordTable = []fieldKeywords{
	{FieldName, []string{"test case name", "title", "name", "test name", "testcase", "test case"}},
	{FieldDescription, []string{"description", "desc", "trigger", "input", "expected", "prompt", "details"}},
	{FieldPriority, []string{"priority", "prio", "severity"}},
	{FieldStatus, []string{"status", "result", "state"}},
	{FieldTestCaseDocURL, []string{"test case doc", "doc url", "documentation"}},
	{FieldTestResultURL, []string{"test result", "result url", "evidence"}},
	{FieldJiraURL, []string{"jira", "issue", "ticket", "bug"}},
}

// Fields lists every canonical field in declaration order.
func Fields() []Field {
	out := make([]Field, len(keywordTable))
	for i, entry := range keywordTable {
		out[i] = entry.field
	}
	return out
}

// Valid reports whether f is a canonical field.
func (f Field) Valid() bool {
	for _, entry := range keywordTable {
		if entry.field == f {
			return true
		}
	}
	return false
}

// ColumnMapping assigns source column indices to canonical fields. It
// serialises as a JSON object keyed by the decimal column index.
type ColumnMapping map[int]Field

// Indices returns the mapped column indices in ascending order.
func (m ColumnMapping) Indices() []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Has reports whether any column maps onto f.
func (m ColumnMapping) Has(f Field) bool {
	for _, target := range m {
		if target == f {
			return true
		}
	}
	return false
}

// StatusPolicy decides where a row's status comes from. When both indices
// are nil the mapped status column is used; otherwise the pass/fail cells
// decide and any status column is ignored.
type StatusPolicy struct {
	HasPassColumn   bool `json:"hasPassColumn"`
	PassColumnIndex *int `json:"passColumnIndex"`
	HasFailColumn   bool `json:"hasFailColumn"`
	FailColumnIndex *int `json:"failColumnIndex"`
}

// UsesPassFail reports whether status is derived from pass/fail cells.
func (p StatusPolicy) UsesPassFail() bool {
	return p.PassColumnIndex != nil || p.FailColumnIndex != nil
}

// Confidence is the analyser's self-assessment of a mapping.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Valid reports whether c is a known level.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Source records which path produced a Result.
type Source string

const (
	SourceRemote Source = "REMOTE"
	SourceLocal  Source = "LOCAL"
)

// Analysis describes how a sheet was interpreted.
type Analysis struct {
	ColumnMapping ColumnMapping `json:"columnMapping"`
	StatusMapping StatusPolicy  `json:"statusMapping"`
	Feedback      []string      `json:"feedback"`
	Warnings      []string      `json:"warnings"`
	ValidRowCount int           `json:"validRowCount"`
	SkippedRows   int           `json:"skippedRows"`
	Confidence    Confidence    `json:"confidence"`
}

// Result is an Analysis together with the rows it produced.
type Result struct {
	Analysis   Analysis                   `json:"analysis"`
	MappedData []models.CanonicalTestCase `json:"mappedData"`
	Source     Source                     `json:"source"`
}
