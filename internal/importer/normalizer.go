package importer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

// NormalizeRows turns rows into canonical test cases using mapping and
// policy. Empty rows and rows without a name are dropped; the remaining rows
// keep their input order. Inputs are never modified.
func NormalizeRows(headers []string, rows [][]any, mapping ColumnMapping, policy StatusPolicy) []models.CanonicalTestCase {
	indices := mapping.Indices()
	passFail := policy.UsesPassFail()

	out := make([]models.CanonicalTestCase, 0, len(rows))
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		tc := models.NewCanonicalTestCase()
		for _, idx := range indices {
			if idx < 0 || idx >= len(row) || row[idx] == nil {
				continue
			}
			value := strings.TrimSpace(stringify(row[idx]))

			switch field := mapping[idx]; field {
			case FieldPriority:
				priority := models.TestCasePriority(strings.ToUpper(value))
				if !priority.Valid() {
					priority = models.PriorityMedium
				}
				tc.Priority = priority
			case FieldStatus:
				if passFail {
					continue
				}
				status := models.TestCaseStatus(strings.ToUpper(value))
				if !status.Valid() {
					status = models.TestStatusPending
				}
				tc.Status = status
			default:
				assign(&tc, field, value)
			}
		}

		if passFail {
			tc.Status = resolvePassFail(cellAt(row, policy.PassColumnIndex), cellAt(row, policy.FailColumnIndex))
		}

		if tc.Name == "" {
			continue
		}
		out = append(out, tc)
	}
	return out
}

func assign(tc *models.CanonicalTestCase, field Field, value string) {
	switch field {
	case FieldName:
		tc.Name = value
	case FieldDescription:
		tc.Description = value
	case FieldTestCaseDocURL:
		tc.TestCaseDocURL = value
	case FieldTestResultURL:
		tc.TestResultURL = value
	case FieldJiraURL:
		tc.JiraURL = value
	}
}

func resolvePassFail(passValue, failValue any) models.TestCaseStatus {
	switch {
	case passValue != nil && strings.Contains(strings.ToLower(stringify(passValue)), "pass"):
		return models.TestStatusPassed
	case failValue != nil && strings.Contains(strings.ToLower(stringify(failValue)), "fail"):
		return models.TestStatusFailed
	case truthy(passValue):
		return models.TestStatusPassed
	case truthy(failValue):
		return models.TestStatusFailed
	default:
		return models.TestStatusPending
	}
}

func cellAt(row []any, idx *int) any {
	if idx == nil || *idx < 0 || *idx >= len(row) {
		return nil
	}
	return row[*idx]
}

func isEmptyRow(row []any) bool {
	for _, cell := range row {
		if cell == nil {
			continue
		}
		if s, ok := cell.(string); ok && s == "" {
			continue
		}
		return false
	}
	return true
}

// stringify renders numbers in their shortest decimal form and booleans as
// true/false.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// truthy: non-empty strings, non-zero numbers and true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
