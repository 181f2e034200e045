// Package app wires configuration into a single check run: it loads the
// identifiers, builds the fetch pipeline and its sinks, drives the dispatcher
// to completion and tears everything down.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcsclient "cloud.google.com/go/storage"
	googleuuid "github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/markercheck/internal/api"
	"github.com/JakeFAU/markercheck/internal/checker"
	"github.com/JakeFAU/markercheck/internal/clock/system"
	"github.com/JakeFAU/markercheck/internal/config"
	"github.com/JakeFAU/markercheck/internal/dispatcher"
	"github.com/JakeFAU/markercheck/internal/extract"
	collyfetcher "github.com/JakeFAU/markercheck/internal/fetcher/colly"
	"github.com/JakeFAU/markercheck/internal/id/uuid"
	"github.com/JakeFAU/markercheck/internal/input"
	"github.com/JakeFAU/markercheck/internal/metrics"
	"github.com/JakeFAU/markercheck/internal/policy/ratelimit"
	"github.com/JakeFAU/markercheck/internal/progress"
	"github.com/JakeFAU/markercheck/internal/progress/sinks"
	"github.com/JakeFAU/markercheck/internal/storage"
	"github.com/JakeFAU/markercheck/internal/storage/gcs"
	"github.com/JakeFAU/markercheck/internal/storage/local"
	"github.com/JakeFAU/markercheck/internal/storage/postgres"
	"github.com/JakeFAU/markercheck/internal/worker"
)

const teardownTimeout = 10 * time.Second

// ErrIncomplete is returned when some identifiers produced no result row.
var ErrIncomplete = errors.New("run incomplete")

// Result describes a finished run.
type Result struct {
	RunID      googleuuid.UUID
	Loaded     int
	Summary    dispatcher.Summary
	OutputPath string
	UploadURI  string
}

type options struct {
	fetcher   checker.Fetcher
	registry  *prometheus.Registry
	clock     checker.Clock
	gcsClient *gcsclient.Client
	mirror    checker.ResultSink
}

// Option customizes Run.
type Option func(*options)

// WithFetcher replaces the colly fetcher.
func WithFetcher(f checker.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithRegistry registers run metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithClock replaces the wall clock.
func WithClock(c checker.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithGCSClient supplies the client used for the output upload.
func WithGCSClient(c *gcsclient.Client) Option {
	return func(o *options) { o.gcsClient = c }
}

// WithMirror adds a result mirror in place of the Postgres store.
func WithMirror(s checker.ResultSink) Option {
	return func(o *options) { o.mirror = s }
}

// Run executes one check over every identifier in cfg's input and blocks
// until the queue drains or ctx is canceled.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	if o.clock == nil {
		o.clock = system.New()
	}
	run := cfg.RunConfig()

	logger.Info("check configured",
		zap.String("file", cfg.Input.File),
		zap.String("base", run.BaseURL),
		zap.String("marker", run.Marker),
		zap.Int("concurrency", run.Concurrency),
		zap.Float64("rps", run.RequestsPerSecond),
		zap.Duration("min_jitter", run.MinJitter),
		zap.String("rate_mode", cfg.Crawler.RateMode),
		zap.String("output", run.OutputPath),
	)

	ids, err := input.Load(input.Source{Path: cfg.Input.File, Column: cfg.Input.Column, Sheet: cfg.Input.Sheet})
	if err != nil {
		return Result{}, fmt.Errorf("load identifiers: %w", err)
	}
	logger.Info("identifiers loaded", zap.Int("count", len(ids)))

	runID, err := uuid.NewRunID()
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already descriptive
	}
	res := Result{RunID: runID, Loaded: len(ids), OutputPath: run.OutputPath}
	logger = logger.With(zap.String("run_id", runID.String()))

	limiter, err := ratelimit.New(ratelimit.Config{
		Mode:              ratelimit.Mode(cfg.Crawler.RateMode),
		RequestsPerSecond: run.RequestsPerSecond,
		MinJitter:         run.MinJitter,
	})
	if err != nil {
		return res, fmt.Errorf("rate limiter: %w", err)
	}
	extractor, err := extract.New(extract.Config{
		Mode:      extract.Mode(cfg.Extract.Mode),
		Tag:       cfg.Extract.Tag,
		Attribute: cfg.Extract.Attribute,
		Selector:  cfg.Extract.Selector,
	})
	if err != nil {
		return res, fmt.Errorf("extractor: %w", err)
	}
	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = collyfetcher.New(collyfetcher.Config{UserAgent: run.UserAgent, Timeout: run.Timeout})
	}

	sink, pg, err := openSinks(ctx, cfg, o, runID, logger)
	if err != nil {
		return res, err
	}
	teardownCtx, cancelTeardown := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancelTeardown()
	if pg != nil {
		if err := pg.StartRun(ctx, o.clock.Now(), len(ids)); err != nil {
			logger.Warn("postgres run start failed", zap.Error(err))
		}
	}

	hub, tracker, err := newHub(o.registry, logger)
	if err != nil {
		_ = sink.Close()
		return res, err
	}
	server, err := startServer(cfg.Server.Addr, tracker, o.registry, logger)
	if err != nil {
		_ = sink.Close()
		_ = hub.Close(teardownCtx)
		return res, err
	}

	w := worker.New(fetcher, extractor, limiter, sink, hub, o.clock,
		worker.Config{Run: run, RunID: progress.UUIDToBytes(runID)}, logger)
	d, err := dispatcher.New(dispatcher.Config{
		Concurrency: run.Concurrency,
		IsShutdown:  worker.IsShutdown,
		OnProgress:  progressNotice(cfg.Crawler.ProgressEvery, logger),
		OnFault: func(fault *checker.WorkerFault) {
			hub.Emit(progress.Event{
				RunID: progress.UUIDToBytes(runID),
				TS:    o.clock.Now(),
				Stage: progress.StageTaskFault,
				ID:    fault.ID,
				Note:  fmt.Sprint(fault.Value),
			})
		},
		Logger: logger,
	})
	if err != nil {
		_ = sink.Close()
		_ = hub.Close(teardownCtx)
		return res, fmt.Errorf("dispatcher: %w", err)
	}

	hub.Emit(progress.Event{RunID: progress.UUIDToBytes(runID), TS: o.clock.Now(), Stage: progress.StageRunStart, Total: len(ids)})
	summary, runErr := d.Run(ctx, ids, func(ctx context.Context, id string) error {
		_, err := w.Process(ctx, id)
		return err
	})
	res.Summary = summary
	hub.Emit(progress.Event{RunID: progress.UUIDToBytes(runID), TS: o.clock.Now(), Stage: progress.StageRunDone, Total: len(ids)})

	if pg != nil {
		if err := pg.FinishRun(teardownCtx, o.clock.Now(), summary.Completed, summary.Failed+summary.Faulted, summary.Skipped); err != nil {
			logger.Warn("postgres run finish failed", zap.Error(err))
		}
	}
	if err := sink.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close results: %w", err))
	}
	if err := hub.Close(teardownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	if n := hub.Dropped(); n > 0 {
		logger.Warn("progress events dropped", zap.Int64("dropped", n))
	}
	if err := server.Shutdown(teardownCtx); err != nil {
		logger.Warn("status server shutdown failed", zap.Error(err))
	}

	if runErr == nil && summary.Failed+summary.Faulted > 0 {
		runErr = fmt.Errorf("%w: %d of %d ids have no result row", ErrIncomplete, summary.Failed+summary.Faulted, len(ids))
	}
	if runErr == nil && cfg.GCS.Bucket != "" {
		uri, err := upload(teardownCtx, cfg.GCS, o.gcsClient, run.OutputPath)
		if err != nil {
			runErr = fmt.Errorf("upload results: %w", err)
		} else {
			res.UploadURI = uri
			logger.Info("results uploaded", zap.String("uri", uri))
		}
	}

	logger.Info("done",
		zap.Int("total", len(ids)),
		zap.Int("recorded", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("faulted", summary.Faulted),
		zap.Int("skipped", summary.Skipped),
		zap.String("output", run.OutputPath),
	)
	return res, runErr
}

func openSinks(
	ctx context.Context,
	cfg config.Config,
	o options,
	runID googleuuid.UUID,
	logger *zap.Logger,
) (*storage.Fanout, *postgres.ResultStore, error) {
	file, err := local.Open(local.Config{Path: cfg.Output.Path})
	if err != nil {
		return nil, nil, fmt.Errorf("result file: %w", err)
	}
	if !file.Created() {
		logger.Info("resuming existing output file", zap.String("path", file.Path()))
	}

	var (
		mirrors []checker.ResultSink
		pg      *postgres.ResultStore
	)
	if o.mirror != nil {
		mirrors = append(mirrors, o.mirror)
	} else if cfg.Postgres.DSN != "" {
		pg, err = postgres.NewResultStore(ctx, postgres.Config{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table}, runID)
		if err == nil {
			err = pg.EnsureSchema(ctx)
		}
		if err != nil {
			_ = file.Close()
			if pg != nil {
				_ = pg.Close()
			}
			return nil, nil, fmt.Errorf("postgres mirror: %w", err)
		}
		mirrors = append(mirrors, pg)
	}

	sink, err := storage.NewFanout(file, logger, mirrors...)
	if err != nil {
		_ = file.Close()
		return nil, nil, err //nolint:wrapcheck // constructor error
	}
	return sink, pg, nil
}

func newHub(reg prometheus.Registerer, logger *zap.Logger) (*progress.Hub, *sinks.Tracker, error) {
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("progress metrics: %w", err)
	}
	tracker := sinks.NewTracker()
	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger), promSink, tracker)
	return hub, tracker, nil
}

// startServer returns a server that is only listening when addr is set.
// Shutdown on a server that never started is a no-op.
func startServer(addr string, tracker *sinks.Tracker, reg *prometheus.Registry, logger *zap.Logger) (*api.Server, error) {
	if addr == "" {
		return api.NewServer(tracker, reg, nil, logger), nil
	}
	httpMetrics, err := metrics.NewHTTP(reg)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	server := api.NewServer(tracker, reg, httpMetrics, logger)
	if err := server.Start(addr); err != nil {
		return nil, err //nolint:wrapcheck // names the address
	}
	return server, nil
}

func progressNotice(every int, logger *zap.Logger) func(dispatcher.Snapshot) {
	if every <= 0 {
		return nil
	}
	return func(s dispatcher.Snapshot) {
		if done := s.Finished(); done%every == 0 {
			logger.Info("progress", zap.Int("done", done), zap.Int("total", s.Total))
		}
	}
}

func upload(ctx context.Context, cfg config.GCSConfig, client *gcsclient.Client, path string) (string, error) {
	if client == nil {
		c, err := gcsclient.NewClient(ctx)
		if err != nil {
			return "", fmt.Errorf("gcs client: %w", err)
		}
		defer c.Close()
		client = c
	}
	uploader, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket, Object: cfg.Object})
	if err != nil {
		return "", err //nolint:wrapcheck // constructor error
	}
	return uploader.UploadFile(ctx, path)
}
