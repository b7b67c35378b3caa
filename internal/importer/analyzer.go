package importer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/usecase-tracker-api/pkg/llm"
	"github.com/noah-isme/usecase-tracker-api/pkg/sheet"
)

// Fallback reasons reported to the Recorder.
const (
	ReasonNone      = ""
	ReasonDisabled  = "disabled"
	ReasonTimeout   = "timeout"
	ReasonMalformed = "malformed_reply"
	ReasonUpstream  = "upstream_error"
)

// Recorder receives one observation per analysis.
type Recorder interface {
	RecordImportAnalysis(source string, fallbackReason string)
}

type remoteStep func(ctx context.Context) (Result, error)

// Analyzer prefers the remote mapping and degrades to the local pipeline.
type Analyzer struct {
	remote   *RemoteAnalyzer
	recorder Recorder
	logger   *zap.Logger
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithRemote enables the remote step.
func WithRemote(remote *RemoteAnalyzer) Option {
	return func(a *Analyzer) { a.remote = remote }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(a *Analyzer) { a.recorder = recorder }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer builds an Analyzer. Without WithRemote every call is local.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze never fails for a valid sheet: remote problems are logged, counted
// and answered with the local result.
func (a *Analyzer) Analyze(ctx context.Context, s sheet.RawSheet) (Result, error) {
	if err := Validate(s); err != nil {
		return Result{}, err
	}

	result, reason, remoteErr := tryRemoteThenLocal(ctx,
		func(ctx context.Context) (Result, error) { return a.remote.Analyze(ctx, s) },
		func() Result { return AnalyzeLocally(s) },
	)

	if reason != ReasonNone {
		level := a.logger.Warn
		if reason == ReasonDisabled {
			level = a.logger.Debug
		}
		level("import analysis fell back to local mapping",
			zap.String("sheet", s.Name),
			zap.String("reason", reason),
			zap.Int("rows", len(s.Rows)),
			zap.Error(remoteErr))
	}
	if a.recorder != nil {
		a.recorder.RecordImportAnalysis(string(result.Source), reason)
	}
	return result, nil
}

// tryRemoteThenLocal returns the remote result when it succeeds and the
// local result otherwise, together with the reason for falling back and the
// remote error.
func tryRemoteThenLocal(ctx context.Context, remote remoteStep, local func() Result) (Result, string, error) {
	result, err := remote(ctx)
	if err == nil {
		return result, ReasonNone, nil
	}
	return local(), fallbackReason(ctx, err), err
}

func fallbackReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return ReasonDisabled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrMalformedReply):
		return ReasonMalformed
	default:
		return ReasonUpstream
	}
}
