// Package analysis orchestrates one analyzer run end to end: progress
// registration, supervised execution, result ingestion, topology
// classification, and best-effort persistence.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/codegnosis/internal/config"
	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/internal/observability"
	"github.com/Sumatoshi-tech/codegnosis/internal/progress"
	"github.com/Sumatoshi-tech/codegnosis/internal/store"
	"github.com/Sumatoshi-tech/codegnosis/internal/supervisor"
	"github.com/Sumatoshi-tech/codegnosis/internal/topology"
)

// outputFormat is the format token handed to the analyzer.
const outputFormat = "json"

// persistErrsBuffer bounds the persistence outcome channel. Sends never
// block; outcomes beyond the buffer are dropped for absent observers.
const persistErrsBuffer = 16

// Request describes one analysis invocation. Immutable once issued.
// Empty filter and theme fields fall back to the configured defaults.
type Request struct {
	RootPath   string
	Extensions []string
	Excluded   []string
	Theme      string
}

// Runner executes one supervised analyzer command. Injected so tests can
// substitute a fake executor.
type Runner func(ctx context.Context, command supervisor.Command) (supervisor.Output, error)

// Options configures a Service. Store may be nil to disable persistence.
type Options struct {
	Analyzer config.AnalyzerConfig
	Store    *store.Store
	Tracker  *progress.Tracker
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *observability.RunMetrics
	Runner   Runner
}

// Service runs analyses. Safe for concurrent use.
type Service struct {
	analyzer    config.AnalyzerConfig
	store       *store.Store
	tracker     *progress.Tracker
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *observability.RunMetrics
	runner      Runner
	persistErrs chan error
}

// NewService creates a Service, filling unset options with defaults.
func NewService(opts Options) *Service {
	if opts.Tracker == nil {
		opts.Tracker = progress.NewTracker()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("analysis")
	}

	if opts.Runner == nil {
		opts.Runner = supervisor.Run
	}

	return &Service{
		analyzer:    opts.Analyzer,
		store:       opts.Store,
		tracker:     opts.Tracker,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		metrics:     opts.Metrics,
		runner:      opts.Runner,
		persistErrs: make(chan error, persistErrsBuffer),
	}
}

// PersistErrs exposes the persistence outcome stream: one value per
// completed persistence phase, nil on success. Persistence never affects
// the Analyze response; this channel is the only way to observe it.
func (s *Service) PersistErrs() <-chan error {
	return s.persistErrs
}

// Progress polls the most recently started run. An absent or not yet
// written snapshot is an empty answer, not an error.
func (s *Service) Progress(ctx context.Context) (progress.Snapshot, bool, error) {
	snap, ok, err := s.tracker.Latest()

	s.metrics.RecordProgressPoll(ctx, errors.Is(err, progress.ErrMalformedSnapshot))

	return snap, ok, err
}

// Analyze runs the external analyzer against the request root and returns
// the classified result. One deadline-bounded attempt; no retries.
func (s *Service) Analyze(ctx context.Context, req Request) (*ingest.AnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze",
		trace.WithAttributes(attribute.String("project.root", req.RootPath)))
	defer span.End()

	started := time.Now()

	// The handle exists before the spawn so the analyzer's first progress
	// write already lands on a registered path.
	handle := s.tracker.Begin("")

	defer func() {
		closeErr := handle.Close()
		if closeErr != nil {
			s.logger.Warn("progress cleanup failed", "run_id", handle.RunID(), "error", closeErr)
		}
	}()

	command := s.buildCommand(req, handle.Path())

	s.logger.Info("starting analysis",
		"root", req.RootPath, "run_id", handle.RunID(), "timeout", command.Timeout)

	output, runErr := s.runner(ctx, command)
	if runErr != nil {
		s.finishRun(ctx, span, started, nil, runErr)

		return nil, fmt.Errorf("supervise analyzer: %w", runErr)
	}

	result, parseErr := ingest.Parse(output.Stdout)
	if parseErr != nil {
		s.finishRun(ctx, span, started, nil, parseErr)

		return nil, fmt.Errorf("ingest analyzer result: %w", parseErr)
	}

	topology.Annotate(result)

	s.finishRun(ctx, span, started, result, nil)

	s.logger.Info("analysis complete",
		"project", result.ProjectName,
		"files", len(result.Files),
		"cycles", len(result.Cycles),
		"duration", time.Since(started))

	if s.store != nil {
		go s.persist(req.RootPath, result, output.Stdout)
	}

	return result, nil
}

func (s *Service) buildCommand(req Request, progressPath string) supervisor.Command {
	extensions := req.Extensions
	if len(extensions) == 0 {
		extensions = s.analyzer.Extensions
	}

	excluded := req.Excluded
	if len(excluded) == 0 {
		excluded = s.analyzer.Excluded
	}

	theme := req.Theme
	if theme == "" {
		theme = s.analyzer.Theme
	}

	return supervisor.Command{
		Path: s.analyzer.Path,
		Args: []string{
			req.RootPath,
			strings.Join(extensions, ","),
			strings.Join(excluded, ","),
			theme,
			outputFormat,
			"--progress-file", progressPath,
		},
		Timeout: time.Duration(s.analyzer.TimeoutSeconds) * time.Second,
	}
}

func (s *Service) finishRun(ctx context.Context, span trace.Span, started time.Time, result *ingest.AnalysisResult, runErr error) {
	stats := observability.RunStats{
		Outcome:  observability.StatusOK,
		Duration: time.Since(started),
	}

	if result != nil {
		stats.Files = len(result.Files)
		stats.Cycles = len(result.Cycles)
	}

	if runErr != nil {
		stats.Outcome = observability.StatusError

		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}

	s.metrics.RecordRun(ctx, stats)
}

// persist saves the classified result and the raw analyzer output. It runs
// detached from the request: failures are logged and counted, never
// surfaced to the Analyze caller.
func (s *Service) persist(rootPath string, result *ingest.AnalysisResult, raw []byte) {
	ctx, span := s.tracer.Start(context.Background(), "analysis.persist",
		trace.WithAttributes(attribute.String("project.root", rootPath)))
	defer span.End()

	projectID, err := s.store.SaveAnalysis(rootPath, result)
	if err == nil {
		err = s.store.SaveRawReport(projectID, raw)
	}

	if err != nil {
		s.metrics.RecordPersistFailure(ctx)
		s.logger.Warn("persistence failed", "root", rootPath, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	select {
	case s.persistErrs <- err:
	default:
	}
}
