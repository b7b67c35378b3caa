package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/pkg/llm"
)

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.csv")
	content := "Test Case Name,Desc,Pass,Fail\nLogin works,,Yes,\nLogout works,,,Failed\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunAnalyzeJSON(t *testing.T) {
	var out bytes.Buffer
	err := runAnalyze(context.Background(), &out, writeSample(t), nil, zap.NewNop(), analyzeOptions{maxRows: 100, maxBytes: 1 << 20, format: "json"})
	require.NoError(t, err)

	var results map[string]importer.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	res, ok := results["cases"]
	require.True(t, ok)
	assert.Equal(t, importer.SourceLocal, res.Source)
	require.Len(t, res.MappedData, 2)
	assert.Equal(t, "Login works", res.MappedData[0].Name)
}

func TestRunAnalyzeTable(t *testing.T) {
	var out bytes.Buffer
	err := runAnalyze(context.Background(), &out, writeSample(t), nil, zap.NewNop(), analyzeOptions{maxRows: 100, maxBytes: 1 << 20, format: "table"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `sheet "cases"`)
	assert.Contains(t, out.String(), "Logout works")
}

func TestRunAnalyzeUnknownSheet(t *testing.T) {
	err := runAnalyze(context.Background(), &bytes.Buffer{}, writeSample(t), nil, zap.NewNop(), analyzeOptions{sheetName: "nope", maxRows: 100, maxBytes: 1 << 20})
	assert.Error(t, err)
}

func TestAnalyzeCommandRequiresFile(t *testing.T) {
	cmd := newAnalyzeCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestRunAnalyzeLogsRemoteFallback(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	failing := llm.CompleterFunc(func(context.Context, string) (string, error) {
		return "", errors.New("provider unreachable")
	})
	remote := importer.NewRemoteAnalyzer(failing, 5, time.Second)

	var out bytes.Buffer
	err := runAnalyze(context.Background(), &out, writeSample(t), remote, zap.New(core), analyzeOptions{maxRows: 100, maxBytes: 1 << 20, format: "table"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "source LOCAL")

	entries := logs.FilterMessage("import analysis fell back to local mapping").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cases", entries[0].ContextMap()["sheet"])
	assert.Contains(t, entries[0].ContextMap()["error"], "provider unreachable")
}
