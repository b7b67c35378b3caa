package importer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/pkg/llm"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

type recorderStub struct {
	mu      sync.Mutex
	sources []string
	reasons []string
}

func (r *recorderStub) RecordImportAnalysis(source, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	r.reasons = append(r.reasons, reason)
}

func replying(reply string, err error) llm.Completer {
	return llm.CompleterFunc(func(context.Context, string) (string, error) { return reply, err })
}

func localPipeline(s sheet.RawSheet) Result {
	mapping := ClassifyHeaders(s.Headers)
	policy := DetectPassFail(s.Headers)
	return Result{MappedData: NormalizeRows(s.Headers, s.Rows, mapping, policy)}
}

func TestAnalyzerFallsBackOnRemoteFailure(t *testing.T) {
	cases := []struct {
		name      string
		completer llm.Completer
		reason    string
	}{
		{"not configured", nil, ReasonDisabled},
		{"network error", replying("", errors.New("connection refused")), ReasonUpstream},
		{"non-2xx", replying("", &llm.StatusError{Provider: "p", StatusCode: 502}), ReasonUpstream},
		{"unparseable", replying("I cannot help with that", nil), ReasonMalformed},
		{"no usable mapping", replying(`{"columnMapping":{"9":"name","0":"owner"}}`, nil), ReasonMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorderStub{}
			opts := []Option{WithRecorder(rec)}
			if tc.completer != nil {
				opts = append(opts, WithRemote(NewRemoteAnalyzer(tc.completer, 5, time.Second)))
			}
			s := exampleSheet()

			result, err := NewAnalyzer(opts...).Analyze(context.Background(), s)
			require.NoError(t, err)

			assert.Equal(t, SourceLocal, result.Source)
			if diff := cmp.Diff(localPipeline(s).MappedData, result.MappedData); diff != "" {
				t.Fatalf("fallback data differs from local pipeline (-want +got):\n%s", diff)
			}
			assert.Equal(t, AnalyzeLocally(s), result)
			assert.Equal(t, []string{string(SourceLocal)}, rec.sources)
			assert.Equal(t, []string{tc.reason}, rec.reasons)
		})
	}
}

func TestAnalyzerFallsBackOnTimeout(t *testing.T) {
	slow := llm.CompleterFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	rec := &recorderStub{}
	a := NewAnalyzer(WithRemote(NewRemoteAnalyzer(slow, 5, 10*time.Millisecond)), WithRecorder(rec))

	result, err := a.Analyze(context.Background(), exampleSheet())
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, result.Source)
	assert.Equal(t, []string{ReasonTimeout}, rec.reasons)
}

func TestAnalyzerUsesRemoteMapping(t *testing.T) {
	reply := "Here you go:\n```json\n" + `{
		"columnMapping": {"0": "name", "1": "description", "3": "priority", "7": "name", "2": "colour"},
		"statusMapping": {"hasPassColumn": true, "passColumnIndex": 2, "hasFailColumn": false, "failColumnIndex": null},
		"feedback": ["Column 0 holds titles"],
		"warnings": [" "],
		"confidence": "high"
	}` + "\n```"

	var prompt string
	completer := llm.CompleterFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return reply, nil
	})
	rec := &recorderStub{}
	s := sheet.RawSheet{
		Name:    "Smoke",
		Headers: []string{"Scenario", "Steps", "OK?", "Level"},
		Rows: [][]any{
			{"  Sign up ", " fill form ", "yes", "low"},
			{"Reset password", "email link", "", "HIGH"},
			{nil, "orphan", "yes", "LOW"},
		},
	}

	result, err := NewAnalyzer(WithRemote(NewRemoteAnalyzer(completer, 2, time.Second)), WithRecorder(rec)).Analyze(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, SourceRemote, result.Source)
	assert.Equal(t, ColumnMapping{0: FieldName, 1: FieldDescription, 3: FieldPriority}, result.Analysis.ColumnMapping)
	assert.Equal(t, ConfidenceHigh, result.Analysis.Confidence)
	assert.Equal(t, 2, result.Analysis.ValidRowCount)
	assert.Equal(t, 1, result.Analysis.SkippedRows)
	assert.Equal(t, "Column 0 holds titles", result.Analysis.Feedback[0])
	assert.Len(t, result.Analysis.Warnings, 3)
	assert.Contains(t, result.Analysis.Warnings[0], `unknown field "colour"`)
	assert.Contains(t, result.Analysis.Warnings[1], `unknown column "7"`)
	assert.Equal(t, []string{ReasonNone}, rec.reasons)

	require.Len(t, result.MappedData, 2)
	assert.Equal(t, "Sign up", result.MappedData[0].Name)
	assert.Equal(t, "fill form", result.MappedData[0].Description)
	assert.Equal(t, "PASSED", string(result.MappedData[0].Status))
	assert.Equal(t, "LOW", string(result.MappedData[0].Priority))
	assert.Equal(t, "PENDING", string(result.MappedData[1].Status))

	assert.Contains(t, prompt, `0: "Scenario"`)
	assert.Contains(t, prompt, "Total data rows: 3")
	assert.Contains(t, prompt, "First 2 rows as JSON")
	assert.NotContains(t, prompt, "orphan")
	assert.Contains(t, prompt, "Never rewrite")
}

func TestRemoteValuesMatchSourceCells(t *testing.T) {
	s := exampleSheet()
	result, err := ParseReply(s, `{"columnMapping":{"0":"name","1":"description"},"statusMapping":{"passColumnIndex":2,"failColumnIndex":3}}`)
	require.NoError(t, err)

	for i, tc := range result.MappedData {
		src := []int{0, 2}[i]
		assert.Equal(t, strings.TrimSpace(s.Rows[src][0].(string)), tc.Name)
		assert.Equal(t, strings.TrimSpace(s.Rows[src][1].(string)), tc.Description)
	}
	assert.Equal(t, ConfidenceMedium, result.Analysis.Confidence)
}

func TestAnalyzerRejectsMissingInput(t *testing.T) {
	_, err := NewAnalyzer().Analyze(context.Background(), sheet.RawSheet{Headers: []string{"a"}})
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("sure! {\"a\":1} hope it helps"))
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
}
